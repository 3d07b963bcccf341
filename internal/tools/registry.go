// ABOUTME: Immutable registry mapping tool names to schema-described handlers.
// ABOUTME: Built once at startup; lookups need no locking.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/hcp-gateway/internal/apierr"
)

// ErrDuplicateTool indicates two definitions share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Handler executes a tool. It returns a JSON-shaped value or an apierr error.
type Handler func(ctx context.Context, args Arguments) (any, error)

// Annotations are the behavioral hints advertised to MCP clients.
type Annotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint"`
	DestructiveHint bool   `json:"destructiveHint"`
	IdempotentHint  bool   `json:"idempotentHint"`
}

// Definition is one registered tool.
type Definition struct {
	Name        string
	Description string
	InputSchema Schema
	Annotations Annotations
	Handler     Handler
}

// Registry holds the tool set. It is never mutated after NewRegistry returns.
type Registry struct {
	byName map[string]*Definition
	order  []*Definition
}

// NewRegistry builds a registry from defs in the given order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Definition, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.Name == "" {
			return nil, fmt.Errorf("tool at index %d has no name", i)
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("tool %q has no handler", def.Name)
		}
		if _, exists := r.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
		}
		if def.InputSchema.Type == "" {
			def.InputSchema.Type = "object"
		}
		if def.InputSchema.Properties == nil {
			def.InputSchema.Properties = map[string]Property{}
		}
		if err := def.InputSchema.compile(); err != nil {
			return nil, fmt.Errorf("tool %q: %w", def.Name, err)
		}
		r.byName[def.Name] = &def
		r.order = append(r.order, &def)
	}
	return r, nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// List returns every definition in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, len(r.order))
	for i, def := range r.order {
		out[i] = *def
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Call resolves name, validates raw arguments against its schema and runs the
// handler. Unknown tools and invalid arguments fail before the handler runs.
func (r *Registry) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	def, ok := r.byName[name]
	if !ok {
		return nil, apierr.NotFound("tool", name)
	}

	args := Arguments{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &args); err != nil {
			return nil, apierr.Validation("arguments must be a JSON object", map[string]string{"arguments": "must be an object"})
		}
	}
	if err := def.InputSchema.Validate(args); err != nil {
		return nil, err
	}
	return def.Handler(ctx, args)
}
