// Package vectormemory persists (namespace, key) -> (content, embedding)
// entries across runs, backed by an embedded chromem-go collection per
// namespace. Embeddings are always supplied pre-computed by the llm.Client
// shim — the store never calls an embedding API of its own, so there is no
// batching here: one Put call embeds and stores exactly one document.
package vectormemory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Entry is one retrieved memory.
type Entry struct {
	ID        string
	Content   string
	Score     float32
	Metadata  map[string]string
	CreatedAt string
}

// Store is an embedded, file-persisted vector store keyed by namespace.
type Store struct {
	db          *chromem.DB
	persistPath string
	compress    bool

	mu          sync.RWMutex
	collections map[string]*chromem.Collection

	// embeddingFunc is handed to chromem for each collection and returns an
	// error if called; it is never actually invoked in normal operation because every
	// document is added with a pre-computed embedding (see Put/Search).
	embeddingFunc chromem.EmbeddingFunc
}

// Config configures persistence for a Store.
type Config struct {
	// PersistPath is the directory vectors are saved under. Empty means
	// in-memory only (nothing survives process exit).
	PersistPath string
	Compress    bool
}

// Open creates or loads a Store. If cfg.PersistPath is non-empty and a
// database file already exists there, it is loaded; otherwise a fresh
// in-memory (optionally persisted-on-write) database is created.
func Open(cfg Config) (*Store, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("vectormemory: create persist dir: %w", err)
		}

		dbPath := cfg.PersistPath + "/vectors.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}

		if _, err := os.Stat(dbPath); err == nil {
			db = chromem.NewDB()
			//nolint:staticcheck // Import reads the file written by the Export call in persist.
			if loadErr := db.Import(dbPath, ""); loadErr != nil {
				slog.Warn("vectormemory: failed to load existing store, starting fresh", "path", dbPath, "error", loadErr)
				db = chromem.NewDB()
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("vectormemory: embedding function invoked but embeddings must be pre-computed by the llm.Client and passed to Put/Search")
	}

	return &Store{
		db:            db,
		persistPath:   cfg.PersistPath,
		compress:      cfg.Compress,
		collections:   make(map[string]*chromem.Collection),
		embeddingFunc: identityEmbed,
	}, nil
}
