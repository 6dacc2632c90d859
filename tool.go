package trawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Tool is a capability the model can call. One Tool may expose several
// functions; Execute receives the name of the one being called.
type Tool interface {
	// Definitions describes the callable functions. It must be pure.
	Definitions() []ToolDefinition
	// Execute runs one call. Domain failures (bad arguments, upstream
	// errors, nothing found) belong in ToolResult.Error, not in the error return.
	Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}

// ToolResult is the outcome of a tool execution.
type ToolResult struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Text returns the string fed back to the model for this result.
func (r ToolResult) Text() string {
	if r.Error != "" {
		return "error: " + r.Error
	}
	return r.Content
}

// ToolRegistry maps function names to the tools that implement them.
type ToolRegistry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Tool
	defs   map[string]ToolDefinition
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		byName: make(map[string]Tool),
		defs:   make(map[string]ToolDefinition),
	}
}

// Add registers every function t defines. Nothing is registered if any name
// is empty or already taken.
func (r *ToolRegistry) Add(t Tool) error {
	if t == nil {
		return errors.New("tool is nil")
	}
	defs := t.Definitions()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return errors.New("tool definition has empty name")
		}
		if _, exists := r.byName[d.Name]; exists || seen[d.Name] {
			return fmt.Errorf("tool %s already registered", d.Name)
		}
		seen[d.Name] = true
	}
	for _, d := range defs {
		r.byName[d.Name] = t
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return nil
}

// Lookup finds the tool serving name. Matching is exact.
func (r *ToolRegistry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// AllDefinitions returns every registered definition in registration order.
func (r *ToolRegistry) AllDefinitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Execute dispatches a call by name. An unregistered name yields
// *ErrUnknownTool.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return ToolResult{}, &ErrUnknownTool{Name: name}
	}
	return t.Execute(ctx, name, args)
}
