package vectormemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutAndSearch(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	ns := []string{"memories", "default"}

	require.NoError(t, s.Put(ctx, ns, "mem-1", "the sky is blue", []float32{1, 0, 0}, map[string]string{"content": "the sky is blue"}))
	require.NoError(t, s.Put(ctx, ns, "mem-2", "grass is green", []float32{0, 1, 0}, map[string]string{"content": "grass is green"}))

	results, err := s.Search(ctx, ns, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mem-1", results[0].ID)
}

func TestStore_SearchEmptyNamespace(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	results, err := s.Search(context.Background(), []string{"memories", "nobody"}, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Delete(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	ns := []string{"memories", "default"}
	require.NoError(t, s.Put(ctx, ns, "mem-1", "content", []float32{1, 0}, nil))
	require.NoError(t, s.Delete(ctx, ns, "mem-1"))

	results, err := s.Search(ctx, ns, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "memories__default", collectionName([]string{"memories", "default"}))
	assert.Equal(t, "default", collectionName(nil))
}
