// Package toolregistry implements the {invoke, args_schema, description,
// category} tool registry the planner validates step tool_names against
// and the controller executes plan steps through.
package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
)

// Info describes a registered tool without exposing its handler — the
// shape the plan validator and the LLM's tool-listing prompt both need.
type Info struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	ArgsSchema  map[string]any `json:"args_schema"`
}

// Handler executes a tool call and returns its result, or an error the
// controller records against that plan step.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	info    Info
	handler Handler
}

// Registry is a name -> tool map, safe for concurrent use. It satisfies
// pkg/plan's ToolNameValidator interface so the plan validator can reject
// steps naming unregistered tools.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a tool under name. The type parameter T is reflected
// into a JSON Schema for Info.ArgsSchema using the same
// invopop/jsonschema reflector pkg/plan uses for the plan schema itself
// — one schema-generation technique shared across the module rather than
// reinvented per package.
func Register[T any](r *Registry, name, description, category string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("toolregistry: tool name cannot be empty")
	}

	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))
	schemaMap, err := toMap(schema)
	if err != nil {
		return fmt.Errorf("toolregistry: generate schema for %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("toolregistry: tool %q already registered", name)
	}
	r.entries[name] = entry{
		info: Info{
			Name:        name,
			Description: description,
			Category:    category,
			ArgsSchema:  schemaMap,
		},
		handler: handler,
	}
	return nil
}

// HasTool reports whether name is registered — satisfies
// pkg/plan.ToolNameValidator.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// ToolNames returns every registered tool name — satisfies
// pkg/plan.ToolNameValidator.
func (r *Registry) ToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns Info for every registered tool, sorted by name — used to
// build the tool-catalog section of the planning prompt.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Get returns a tool's Info.
func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.info, ok
}

// ExecutionResult is the outcome of one Invoke call, carrying enough
// detail for the checkpoint state and the reflect prompt.
type ExecutionResult struct {
	ToolName string        `json:"tool_name"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Invoke runs the named tool's handler. It never returns a Go error for
// "tool not found" or "handler failed" — both are folded into
// ExecutionResult.Error so the execute phase can continue past a failing
// step rather than aborting the plan.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) ExecutionResult {
	start := time.Now()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return ExecutionResult{ToolName: name, Error: fmt.Sprintf("tool %q not registered", name), Duration: time.Since(start)}
	}

	output, err := e.handler(ctx, args)
	result := ExecutionResult{ToolName: name, Output: output, Duration: time.Since(start)}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
