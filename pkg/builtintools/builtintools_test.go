package builtintools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ikoma/pkg/toolregistry"
)

func newTestRegistry(t *testing.T, dir string) *toolregistry.Registry {
	t.Helper()
	r := toolregistry.New()
	require.NoError(t, Register(r, Config{WorkingDirectory: dir}))
	return r
}

func TestRegister_RegistersFilesystemAndCommandTools(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())
	names := r.ToolNames()
	assert.Contains(t, names, "read_file")
	assert.Contains(t, names, "write_file")
	assert.Contains(t, names, "list_files")
	assert.Contains(t, names, "search_replace")
	assert.Contains(t, names, "run_command")
	assert.NotContains(t, names, "fetch_url")
}

func TestWriteFileThenReadFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	result := r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "notes.txt", "content": "hello world",
	})
	require.Empty(t, result.Error)

	result = r.Invoke(context.Background(), "read_file", map[string]any{"path": "notes.txt"})
	require.Empty(t, result.Error)
	assert.Equal(t, "hello world", result.Output)
}

func TestWriteFile_RejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	result := r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "payload.exe", "content": "bad",
	})
	assert.NotEmpty(t, result.Error)
}

func TestWriteFile_BacksUpExistingContent(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	require.Empty(t, r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "a.txt", "content": "v1",
	}).Error)

	require.Empty(t, r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "a.txt", "content": "v2", "backup": true,
	}).Error)

	backup, err := os.ReadFile(filepath.Join(dir, "a.txt.bak"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(backup))
}

func TestResolve_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	result := r.Invoke(context.Background(), "read_file", map[string]any{"path": "../../etc/passwd"})
	assert.NotEmpty(t, result.Error)
}

func TestListFiles_ListsWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	require.Empty(t, r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "one.txt", "content": "x",
	}).Error)

	result := r.Invoke(context.Background(), "list_files", map[string]any{})
	require.Empty(t, result.Error)
	assert.Contains(t, result.Output, "one.txt")
}

func TestSearchReplace_ReplacesFirstOccurrence(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)

	require.Empty(t, r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "doc.md", "content": "foo bar foo",
	}).Error)

	result := r.Invoke(context.Background(), "search_replace", map[string]any{
		"path": "doc.md", "search": "foo", "replace": "baz",
	})
	require.Empty(t, result.Error)

	content, err := os.ReadFile(filepath.Join(dir, "doc.md"))
	require.NoError(t, err)
	assert.Equal(t, "baz bar foo", string(content))
}

func TestSearchReplace_ErrorsWhenSearchTextMissing(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)
	require.Empty(t, r.Invoke(context.Background(), "write_file", map[string]any{
		"path": "doc.md", "content": "nothing to find here",
	}).Error)

	result := r.Invoke(context.Background(), "search_replace", map[string]any{
		"path": "doc.md", "search": "missing", "replace": "x",
	})
	assert.NotEmpty(t, result.Error)
}

func TestRunCommand_RejectsDisallowedCommand(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())
	result := r.Invoke(context.Background(), "run_command", map[string]any{"command": "rm"})
	assert.NotEmpty(t, result.Error)
}

func TestRunCommand_AllowsListedCommand(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir)
	result := r.Invoke(context.Background(), "run_command", map[string]any{"command": "pwd"})
	assert.Empty(t, result.Error)
}
