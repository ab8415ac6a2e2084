// Package tools exposes the patch engine as a caller-facing tool: JSON
// arguments in, structured result map out. Transports (CLI, stdio serve
// loop, anything else) stay thin on top of this.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Tool is the interface every tool implementation must satisfy.
type Tool interface {
	// Name returns the tool's registration name.
	Name() string
	// Description returns a one-line summary for callers.
	Description() string
	// JSONSchema returns the argument schema.
	JSONSchema() map[string]any
	// Call executes the tool with raw JSON arguments.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// Registry holds the available tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	r.tools[t.Name()] = t
	r.mu.Unlock()
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return t, nil
}

// ListTools returns the registered tool names, sorted.
func (r *Registry) ListTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
