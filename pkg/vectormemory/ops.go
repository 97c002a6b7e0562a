package vectormemory

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// collectionName joins a namespace tuple into chromem's single-string
// collection name, e.g. ("memories", "default") -> "memories__default".
func collectionName(namespace []string) string {
	name := ""
	for i, part := range namespace {
		if i > 0 {
			name += "__"
		}
		name += part
	}
	if name == "" {
		name = "default"
	}
	return name
}

func (s *Store) getCollection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	if c, ok := s.collections[name]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	c, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("vectormemory: get/create collection %q: %w", name, err)
	}
	s.collections[name] = c
	return c, nil
}

// Put stores (or replaces) one memory entry at (namespace, key) with a
// pre-computed embedding. This is the only write path — there is no
// batch-put, matching the one-document-per-embed-call design.
func (s *Store) Put(ctx context.Context, namespace []string, key string, content string, embedding []float32, metadata map[string]string) error {
	col, err := s.getCollection(collectionName(namespace))
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        key,
		Content:   content,
		Metadata:  metadata,
		Embedding: embedding,
	}

	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("vectormemory: put %q/%q: %w", collectionName(namespace), key, err)
	}

	if err := s.persist(); err != nil {
		slog.Warn("vectormemory: persist after put failed", "error", err)
	}
	return nil
}

// Search returns the topK entries in namespace most similar to queryVector.
func (s *Store) Search(ctx context.Context, namespace []string, queryVector []float32, topK int) ([]Entry, error) {
	col, err := s.getCollection(collectionName(namespace))
	if err != nil {
		return nil, err
	}

	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	results, err := col.QueryEmbedding(ctx, queryVector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectormemory: search %q: %w", collectionName(namespace), err)
	}

	out := make([]Entry, 0, len(results))
	for _, r := range results {
		out = append(out, Entry{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: r.Metadata,
		})
	}
	return out, nil
}

// Delete removes a single entry by (namespace, key).
func (s *Store) Delete(ctx context.Context, namespace []string, key string) error {
	col, err := s.getCollection(collectionName(namespace))
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, key); err != nil {
		return fmt.Errorf("vectormemory: delete %q/%q: %w", collectionName(namespace), key, err)
	}
	return s.persist()
}

// Close persists the store (if persistence is configured) and releases
// resources.
func (s *Store) Close() error {
	return s.persist()
}

func (s *Store) persist() error {
	if s.persistPath == "" {
		return nil
	}
	dbPath := s.persistPath + "/vectors.gob"
	if s.compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // Export is the only persistence entry point chromem-go exposes.
	if err := s.db.Export(dbPath, s.compress, ""); err != nil {
		return fmt.Errorf("vectormemory: persist: %w", err)
	}
	return nil
}
