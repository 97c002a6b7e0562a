package toolregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchArgs struct {
	URL string `json:"url" jsonschema:"required,description=URL to fetch"`
}

func TestRegister_AndInvoke(t *testing.T) {
	r := New()
	err := Register[fetchArgs](r, "fetch_url", "fetches a URL", "web", func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{"status": 200, "url": args["url"]}, nil
	})
	require.NoError(t, err)

	assert.True(t, r.HasTool("fetch_url"))
	assert.Equal(t, []string{"fetch_url"}, r.ToolNames())

	info, ok := r.Get("fetch_url")
	require.True(t, ok)
	assert.Equal(t, "web", info.Category)
	assert.Equal(t, "object", info.ArgsSchema["type"])

	result := r.Invoke(context.Background(), "fetch_url", map[string]any{"url": "https://example.com"})
	assert.Empty(t, result.Error)
	assert.Equal(t, "fetch_url", result.ToolName)
}

func TestRegister_DuplicateName(t *testing.T) {
	r := New()
	require.NoError(t, Register[fetchArgs](r, "dup", "d", "cat", noop))
	err := Register[fetchArgs](r, "dup", "d", "cat", noop)
	assert.Error(t, err)
}

func TestInvoke_UnregisteredTool(t *testing.T) {
	r := New()
	result := r.Invoke(context.Background(), "missing", nil)
	assert.NotEmpty(t, result.Error)
}

func TestInvoke_HandlerErrorDoesNotPanic(t *testing.T) {
	r := New()
	require.NoError(t, Register[fetchArgs](r, "boom", "d", "cat", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("boom")
	}))

	result := r.Invoke(context.Background(), "boom", nil)
	assert.Equal(t, "boom", result.Error)
}

func noop(ctx context.Context, args map[string]any) (any, error) {
	return nil, nil
}
