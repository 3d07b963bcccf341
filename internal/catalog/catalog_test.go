// ABOUTME: Tests for prompt rendering and resource lookup.

package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hcp-gateway/internal/apierr"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(
		[]Prompt{{
			Name:        "get_project",
			Description: "Get a project",
			Arguments: []PromptArgument{
				{Name: "organization_id", Required: true},
				{Name: "project_id", Required: true},
				{Name: "note"},
			},
			Guidance: "Use get_project.",
			Template: "Get project {project_id} in {organization_id}.{note}",
		}},
		[]Resource{{URI: "hcp://schema/project", Name: "project", MimeType: "application/schema+json", Text: `{"type":"object"}`}},
	)
	require.NoError(t, err)
	return c
}

func TestRender(t *testing.T) {
	c := testCatalog(t)

	out, err := c.Render("get_project", map[string]string{"organization_id": "org-1", "project_id": "p-1"})

	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "user", out.Messages[0].Role)
	assert.Equal(t, "text", out.Messages[0].Content.Type)
	assert.Equal(t, "Use get_project.\n\nGet project p-1 in org-1.", out.Messages[0].Content.Text)
	assert.Equal(t, "Get a project", out.Description)
}

func TestRenderMissingArgument(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Render("get_project", map[string]string{"organization_id": "org-1"})

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	assert.Contains(t, apierr.Metadata(err)["fields"], "project_id")
}

func TestRenderUnknownPrompt(t *testing.T) {
	_, err := testCatalog(t).Render("nope", nil)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRead(t *testing.T) {
	c := testCatalog(t)

	contents, err := c.Read("hcp://schema/project")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `{"type":"object"}`, contents[0].Text)

	_, err = c.Read("hcp://schema/missing")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Prompt{{Name: "a"}, {Name: "a"}}, nil)
	assert.True(t, errors.Is(err, ErrDuplicateEntry))

	_, err = New(nil, []Resource{{URI: "x"}, {URI: "x"}})
	assert.True(t, errors.Is(err, ErrDuplicateEntry))
}
