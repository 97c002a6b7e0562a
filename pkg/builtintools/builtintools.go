// Package builtintools registers the filesystem, shell, and web tools the
// PER loop plans against. Each tool is adapted from hector's local tool
// repository (write_file, command execution, search/replace) but
// re-expressed as a concrete toolregistry.Register[T] handler instead of
// the original Tool/ToolSource interface hierarchy, which carried a
// generic multi-repository discovery model this module has no use for —
// ikoma only ever has one, fixed set of local tools.
package builtintools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kadirpekel/ikoma/pkg/extract"
	"github.com/kadirpekel/ikoma/pkg/httpfetch"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
)

// Config bounds what the filesystem and command tools are allowed to touch,
// mirroring the safety defaults of hector's FileWriterConfig/CommandToolsConfig.
type Config struct {
	WorkingDirectory  string
	AllowedExtensions []string
	MaxFileSize       int64
	AllowedCommands   []string
	CommandTimeout    time.Duration
	Fetcher           *httpfetch.Fetcher
}

// SetDefaults fills zero-valued fields with hector-style secure defaults.
func (c *Config) SetDefaults() {
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "."
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{".go", ".yaml", ".yml", ".md", ".json", ".txt", ".sh"}
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 1 << 20 // 1MB
	}
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = []string{"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd", "git", "go"}
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
}

// Register wires every builtin tool into r.
func Register(r *toolregistry.Registry, cfg Config) error {
	cfg.SetDefaults()

	if err := toolregistry.Register[ReadFileArgs](r, "read_file", "Read the contents of a file relative to the working directory.", "filesystem", cfg.readFile); err != nil {
		return err
	}
	if err := toolregistry.Register[WriteFileArgs](r, "write_file", "Create or overwrite a file relative to the working directory, with an optional backup of the previous contents.", "filesystem", cfg.writeFile); err != nil {
		return err
	}
	if err := toolregistry.Register[ListFilesArgs](r, "list_files", "List files under a directory relative to the working directory.", "filesystem", cfg.listFiles); err != nil {
		return err
	}
	if err := toolregistry.Register[SearchReplaceArgs](r, "search_replace", "Replace the first occurrence of a search string with a replacement in a file.", "filesystem", cfg.searchReplace); err != nil {
		return err
	}
	if err := toolregistry.Register[RunCommandArgs](r, "run_command", "Execute an allow-listed shell command and capture its output.", "system", cfg.runCommand); err != nil {
		return err
	}
	if cfg.Fetcher != nil {
		if err := toolregistry.Register[FetchURLArgs](r, "fetch_url", "Fetch a URL and extract its readable text content, subject to rate limiting and domain filtering.", "web", cfg.fetchURL); err != nil {
			return err
		}
	}
	return nil
}

// ReadFileArgs names the file to read.
type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=File path relative to the working directory"`
}

func (c Config) readFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	resolved, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read_file: %w", err)
	}
	return string(data), nil
}

// WriteFileArgs names the file, its new content, and whether to keep a
// backup of the previous contents before overwriting.
type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path relative to the working directory"`
	Content string `json:"content" jsonschema:"required,description=Content to write"`
	Backup  bool   `json:"backup,omitempty" jsonschema:"description=Back up the existing file before overwriting"`
}

func (c Config) writeFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	backup, _ := args["backup"].(bool)

	resolved, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if !c.extensionAllowed(resolved) {
		return nil, fmt.Errorf("write_file: extension of %q is not in the allowed list", path)
	}
	if int64(len(content)) > c.MaxFileSize {
		return nil, fmt.Errorf("write_file: content size %d exceeds max %d bytes", len(content), c.MaxFileSize)
	}

	if backup {
		if existing, err := os.ReadFile(resolved); err == nil {
			if err := os.WriteFile(resolved+".bak", existing, 0o644); err != nil {
				return nil, fmt.Errorf("write_file: backup failed: %w", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("write_file: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// ListFilesArgs names the directory to list, defaulting to the working
// directory's root.
type ListFilesArgs struct {
	Dir string `json:"dir,omitempty" jsonschema:"description=Directory relative to the working directory, defaults to its root"`
}

func (c Config) listFiles(ctx context.Context, args map[string]any) (any, error) {
	dir, _ := args["dir"].(string)
	resolved, err := c.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("list_files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SearchReplaceArgs names the file and the single find/replace pair to apply.
type SearchReplaceArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path relative to the working directory"`
	Search  string `json:"search" jsonschema:"required,description=Exact text to find"`
	Replace string `json:"replace" jsonschema:"description=Replacement text"`
}

func (c Config) searchReplace(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	search, _ := args["search"].(string)
	replace, _ := args["replace"].(string)

	resolved, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("search_replace: %w", err)
	}
	content := string(data)
	if !strings.Contains(content, search) {
		return nil, fmt.Errorf("search_replace: search text not found in %s", path)
	}
	updated := strings.Replace(content, search, replace, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("search_replace: %w", err)
	}
	return fmt.Sprintf("replaced 1 occurrence in %s", path), nil
}

// RunCommandArgs is an allow-listed command name plus its arguments.
type RunCommandArgs struct {
	Command string   `json:"command" jsonschema:"required,description=Allow-listed command name"`
	Args    []string `json:"args,omitempty" jsonschema:"description=Command arguments"`
}

func (c Config) runCommand(ctx context.Context, args map[string]any) (any, error) {
	command, _ := args["command"].(string)
	if !contains(c.AllowedCommands, command) {
		return nil, fmt.Errorf("run_command: %q is not in the allowed command list", command)
	}

	var cmdArgs []string
	if raw, ok := args["args"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				cmdArgs = append(cmdArgs, s)
			}
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, command, cmdArgs...)
	cmd.Dir = c.WorkingDirectory
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("run_command: %w", err)
	}
	return string(out), nil
}

// FetchURLArgs names the URL to fetch and extract.
type FetchURLArgs struct {
	URL string `json:"url" jsonschema:"required,description=URL to fetch"`
}

func (c Config) fetchURL(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	result, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch_url: %w", err)
	}
	content, err := extract.Extract(url, string(result.Body), 1000)
	if err != nil {
		return nil, fmt.Errorf("fetch_url: %w", err)
	}
	return content, nil
}

func (c Config) resolve(path string) (string, error) {
	base, err := filepath.Abs(c.WorkingDirectory)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	joined := filepath.Join(base, path)
	rel, err := filepath.Rel(base, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes the working directory", path)
	}
	return joined, nil
}

func (c Config) extensionAllowed(path string) bool {
	ext := filepath.Ext(path)
	return contains(c.AllowedExtensions, ext)
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
