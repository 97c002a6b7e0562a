package checkpoint

import (
	"context"
	"sync"

	"github.com/kadirpekel/ikoma/pkg/config"
)

// singletons caches one *Store per DSN for the lifetime of the process,
// mirroring get_checkpointer_service's @lru_cache(maxsize=1)-per-db_path
// behavior: every caller that opens the same database shares the same
// store and, transitively, the same *sql.DB connection pool.
var (
	singletonsMu sync.Mutex
	singletons   = map[string]*Store{}
)

// GetSingleton returns the shared *Store for cfg's DSN, opening it via pool
// on first use.
func GetSingleton(ctx context.Context, pool *config.DBPool, cfg *config.DatabaseConfig) (*Store, error) {
	dsn := cfg.DSN()

	singletonsMu.Lock()
	defer singletonsMu.Unlock()

	if s, ok := singletons[dsn]; ok {
		return s, nil
	}

	s, err := Open(ctx, pool, cfg)
	if err != nil {
		return nil, err
	}
	singletons[dsn] = s
	return s, nil
}
