package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ikoma/pkg/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	pool := config.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })

	s, err := Open(context.Background(), pool, &config.DatabaseConfig{Driver: "sqlite3", Database: dbPath})
	require.NoError(t, err)
	return s
}

func TestStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Record{RunID: "run-1", Step: 1, State: map[string]any{"iteration": float64(1)}}))
	require.NoError(t, s.Save(ctx, Record{RunID: "run-1", Step: 2, State: map[string]any{"iteration": float64(2)}}))

	steps, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Step)
	assert.Equal(t, 2, steps[1].Step)
	assert.Equal(t, float64(2), steps[1].State["iteration"])
}

func TestStore_DuplicateStep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Record{RunID: "run-1", Step: 1, State: map[string]any{}}))
	err := s.Save(ctx, Record{RunID: "run-1", Step: 1, State: map[string]any{}})
	require.ErrorIs(t, err, ErrDuplicateStep)
}

func TestStore_UpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), "missing-run", 1, map[string]any{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Record{RunID: "run-2", Step: 1, State: map[string]any{"x": float64(1)}}))
	require.NoError(t, s.Update(ctx, "run-2", 1, map[string]any{"x": float64(2)}))

	steps, err := s.List(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, float64(2), steps[0].State["x"])

	require.NoError(t, s.DeleteStep(ctx, "run-2", 1))
	err = s.DeleteStep(ctx, "run-2", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetSingleton_SharesStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	pool := config.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })
	cfg := &config.DatabaseConfig{Driver: "sqlite3", Database: dbPath}

	s1, err := GetSingleton(context.Background(), pool, cfg)
	require.NoError(t, err)
	s2, err := GetSingleton(context.Background(), pool, cfg)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}
