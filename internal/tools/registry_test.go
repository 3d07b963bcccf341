// ABOUTME: Tests for the tool registry and argument validation.
// ABOUTME: Handlers must never run when the tool is unknown or arguments are invalid.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hcp-gateway/internal/apierr"
)

func echoTool(name string, calls *int) Definition {
	return Definition{
		Name:        name,
		Description: "echo",
		InputSchema: ObjectSchema(map[string]Property{
			"organization_id": {Type: "string"},
			"page_size":       {Type: "integer"},
			"state":           {Type: "string", Enum: []string{"ACTIVE", "DELETED"}},
			"labels":          {Type: "array", Items: &Property{Type: "string"}},
			"filter": {
				Type: "object",
				Properties: map[string]Property{
					"topic":      {Type: "string"},
					"project_id": {Type: "string"},
				},
				Required: []string{"topic"},
			},
		}, "organization_id"),
		Handler: func(_ context.Context, args Arguments) (any, error) {
			*calls++
			return map[string]any{"org": args.String("organization_id"), "size": args.Int("page_size", 10)}, nil
		},
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	var calls int
	_, err := NewRegistry(echoTool("a", &calls), echoTool("a", &calls))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTool))
}

func TestNewRegistryRejectsMissingHandler(t *testing.T) {
	_, err := NewRegistry(Definition{Name: "broken"})
	require.Error(t, err)
}

func TestListKeepsOrder(t *testing.T) {
	var calls int
	r, err := NewRegistry(echoTool("b", &calls), echoTool("a", &calls), echoTool("c", &calls))
	require.NoError(t, err)

	var names []string
	for _, def := range r.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, 3, r.Len())
}

func TestCallSuccess(t *testing.T) {
	var calls int
	r, err := NewRegistry(echoTool("echo", &calls))
	require.NoError(t, err)

	out, err := r.Call(context.Background(), "echo", json.RawMessage(`{"organization_id":"org-1","page_size":25}`))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"org": "org-1", "size": 25}, out)
	assert.Equal(t, 1, calls)
}

func TestCallUnknownTool(t *testing.T) {
	var calls int
	r, err := NewRegistry(echoTool("echo", &calls))
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "nope", nil)

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
	assert.Equal(t, 0, calls)
}

func TestCallValidation(t *testing.T) {
	tests := []struct {
		name  string
		args  string
		field string
	}{
		{"missing required", `{}`, "organization_id"},
		{"null args", `null`, "organization_id"},
		{"empty required", `{"organization_id":"  "}`, "organization_id"},
		{"wrong type", `{"organization_id":"o","page_size":"ten"}`, "page_size"},
		{"fractional integer", `{"organization_id":"o","page_size":2.5}`, "page_size"},
		{"enum", `{"organization_id":"o","state":"GONE"}`, "state"},
		{"array items", `{"organization_id":"o","labels":["a",1]}`, "labels"},
		{"nested member type", `{"organization_id":"o","filter":{"topic":"t","project_id":1}}`, "filter"},
		{"nested member missing", `{"organization_id":"o","filter":{"project_id":"p"}}`, "filter"},
		{"not an object", `[1,2]`, "arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			r, err := NewRegistry(echoTool("echo", &calls))
			require.NoError(t, err)

			_, err = r.Call(context.Background(), "echo", json.RawMessage(tt.args))

			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.KindValidation))
			fields, ok := apierr.Metadata(err)["fields"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
			assert.Equal(t, 0, calls)
		})
	}
}

func TestCallAcceptsValidNestedArguments(t *testing.T) {
	var calls int
	r, err := NewRegistry(echoTool("echo", &calls))
	require.NoError(t, err)

	_, err = r.Call(context.Background(), "echo",
		json.RawMessage(`{"organization_id":"o","page_size":3,"state":"ACTIVE","labels":["a"],"filter":{"topic":"t"}}`))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSchemaJSON(t *testing.T) {
	s := ObjectSchema(map[string]Property{"name": {Type: "string", Description: "Project name"}}, "name")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string","description":"Project name"}},"required":["name"]}`, string(data))
}

func TestArguments(t *testing.T) {
	args := Arguments{"n": float64(3), "s": "x", "b": true, "null": nil}

	assert.Equal(t, 3, args.Int("n", 0))
	assert.Equal(t, 7, args.Int("missing", 7))
	assert.Equal(t, "x", args.String("s"))
	assert.True(t, args.Bool("b", false))
	assert.False(t, args.Has("null"))
	assert.True(t, args.Has("s"))
}
