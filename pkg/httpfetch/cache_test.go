package httpfetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache_PutAndGet(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)

	err := c.Put("GET", "https://example.com/a", CachedResponse{
		URL: "https://example.com/a", StatusCode: 200, Body: []byte("hello"), FetchedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	got, ok := c.Get("GET", "https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got.Body))
}

func TestDiskCache_Miss(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)
	_, ok := c.Get("GET", "https://example.com/missing")
	assert.False(t, ok)
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Millisecond)

	require.NoError(t, c.Put("GET", "https://example.com/a", CachedResponse{
		StatusCode: 200, Body: []byte("x"), FetchedAt: time.Now().Add(-time.Hour),
	}))

	_, ok := c.Get("GET", "https://example.com/a")
	assert.False(t, ok)
}
