// ABOUTME: Input schemas for tools and the validator applied before any handler runs.
// ABOUTME: Required fields are checked here; types, enums and nesting by jsonschema-go.

package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/2389/hcp-gateway/internal/apierr"
)

// Schema is the JSON Schema subset advertised in tools/list.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`

	// resolved holds one compiled validator per property, filled by compile.
	resolved map[string]*jsonschema.Resolved
}

// Property describes one argument. Properties and Required describe the
// members of an object-typed argument.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Format      string              `json:"format,omitempty"`
	Default     any                 `json:"default,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// jsonSchema converts p into the validator's schema model. Descriptions,
// formats and defaults are advertised only and are not checked.
func (p Property) jsonSchema() *jsonschema.Schema {
	js := &jsonschema.Schema{}
	if p.Type != "" && p.Type != "any" {
		js.Type = p.Type
	}
	for _, v := range p.Enum {
		js.Enum = append(js.Enum, v)
	}
	if p.Items != nil {
		js.Items = p.Items.jsonSchema()
	}
	if len(p.Properties) > 0 {
		js.Properties = make(map[string]*jsonschema.Schema, len(p.Properties))
		for name, member := range p.Properties {
			js.Properties[name] = member.jsonSchema()
		}
	}
	js.Required = p.Required
	return js
}

func resolveProperty(p Property) (*jsonschema.Resolved, error) {
	return p.jsonSchema().Resolve(&jsonschema.ResolveOptions{})
}

// compile resolves every property schema once so Validate does not.
func (s *Schema) compile() error {
	resolved := make(map[string]*jsonschema.Resolved, len(s.Properties))
	for name, prop := range s.Properties {
		rs, err := resolveProperty(prop)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		resolved[name] = rs
	}
	s.resolved = resolved
	return nil
}

// Validate checks args against s. All problems are reported at once in the
// returned validation error's fields.
func (s Schema) Validate(args map[string]any) error {
	fields := map[string]string{}

	for _, name := range s.Required {
		v, ok := args[name]
		if !ok || v == nil {
			fields[name] = "required"
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			fields[name] = "must not be empty"
		}
	}

	for name, value := range args {
		if _, reported := fields[name]; reported || value == nil {
			continue
		}
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		rs, ok := s.resolved[name]
		if !ok {
			var err error
			if rs, err = resolveProperty(prop); err != nil {
				fields[name] = "unsupported schema: " + err.Error()
				continue
			}
		}
		if err := rs.Validate(value); err != nil {
			fields[name] = err.Error()
		}
	}

	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+fields[name])
	}
	return apierr.Validation("invalid params: "+strings.Join(parts, "; "), fields)
}
