package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vidsage/internal/logging"
)

// Registry holds all available tools and answers lookups and
// schema-listing queries. Registration happens at startup; afterwards
// the registry is effectively read-only, but access is still guarded so
// concurrent requests can share one instance.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool

	byCategory map[Category][]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[Category][]*Tool),
	}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)

	logging.Get(logging.CategoryTools).Debugw("registered tool", "name", tool.Name, "category", tool.Category)
	return nil
}

// MustRegister registers a tool and panics on error. Use for static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ByCategory returns all tools in a category.
func (r *Registry) ByCategory(category Category) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, len(r.byCategory[category]))
	copy(out, r.byCategory[category])
	return out
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Descriptors returns the introspection view of every tool, ordered by
// name. This is the catalog the decision stage plans against.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      tool.Schema,
			Idempotent:  tool.Idempotent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a tool by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool runs a specific tool with the given arguments.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args map[string]any) (*Result, error) {
	start := time.Now()
	log := logging.Get(logging.CategoryTools)

	if err := validateArgs(tool, args); err != nil {
		return &Result{
			ToolName: tool.Name,
			Err:      err,
			Elapsed:  time.Since(start).Milliseconds(),
		}, err
	}

	log.Debugw("executing tool", "name", tool.Name)
	output, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	log.Debugw("tool completed", "name", tool.Name, "elapsed", elapsed, "success", err == nil)

	return &Result{
		ToolName: tool.Name,
		Output:   output,
		Err:      err,
		Elapsed:  elapsed.Milliseconds(),
	}, err
}

// validateArgs checks that all required arguments are present.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}
