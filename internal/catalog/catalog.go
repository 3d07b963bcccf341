// ABOUTME: Static catalog of MCP prompts and resources with lookup and rendering.
// ABOUTME: Prompts render {placeholder} templates; resources return fixed documents.

package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/2389/hcp-gateway/internal/apierr"
)

// ErrDuplicateEntry indicates two prompts or two resources share an identifier.
var ErrDuplicateEntry = errors.New("duplicate catalog entry")

// PromptArgument is one named input of a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt is a reusable message template. Guidance is prepended to the
// rendered template when set.
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Guidance    string
	Template    string
}

// Message is one rendered prompt message.
type Message struct {
	Role    string      `json:"role"`
	Content TextContent `json:"content"`
}

// TextContent is MCP text content.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Rendered is the result of prompts/get.
type Rendered struct {
	Description string    `json:"description,omitempty"`
	Messages    []Message `json:"messages"`
}

// Resource is a readable document identified by URI.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Text        string `json:"-"`
}

// Contents is one entry of a resources/read result.
type Contents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// Catalog holds prompts and resources. It is read-only once built.
type Catalog struct {
	prompts   []Prompt
	byName    map[string]int
	resources []Resource
	byURI     map[string]int
}

// New builds a catalog, rejecting duplicate names or URIs.
func New(prompts []Prompt, resources []Resource) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]int, len(prompts)),
		byURI:  make(map[string]int, len(resources)),
	}
	for _, p := range prompts {
		if _, exists := c.byName[p.Name]; exists {
			return nil, fmt.Errorf("%w: prompt %s", ErrDuplicateEntry, p.Name)
		}
		c.byName[p.Name] = len(c.prompts)
		c.prompts = append(c.prompts, p)
	}
	for _, r := range resources {
		if _, exists := c.byURI[r.URI]; exists {
			return nil, fmt.Errorf("%w: resource %s", ErrDuplicateEntry, r.URI)
		}
		c.byURI[r.URI] = len(c.resources)
		c.resources = append(c.resources, r)
	}
	return c, nil
}

// Prompts returns all prompts in declaration order.
func (c *Catalog) Prompts() []Prompt {
	return append([]Prompt(nil), c.prompts...)
}

// Resources returns all resources in declaration order.
func (c *Catalog) Resources() []Resource {
	return append([]Resource(nil), c.resources...)
}

// Prompt looks a prompt up by name.
func (c *Catalog) Prompt(name string) (Prompt, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Prompt{}, false
	}
	return c.prompts[i], true
}

var placeholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render fills the named prompt with args.
func (c *Catalog) Render(name string, args map[string]string) (Rendered, error) {
	p, ok := c.Prompt(name)
	if !ok {
		return Rendered{}, apierr.NotFound("prompt", name)
	}

	missing := map[string]string{}
	for _, arg := range p.Arguments {
		if arg.Required && strings.TrimSpace(args[arg.Name]) == "" {
			missing[arg.Name] = "required"
		}
	}
	if len(missing) > 0 {
		return Rendered{}, apierr.Validation("missing prompt arguments", missing)
	}

	text := placeholder.ReplaceAllStringFunc(p.Template, func(m string) string {
		return args[m[1:len(m)-1]]
	})
	if p.Guidance != "" {
		text = p.Guidance + "\n\n" + text
	}

	return Rendered{
		Description: p.Description,
		Messages: []Message{{
			Role:    "user",
			Content: TextContent{Type: "text", Text: strings.TrimSpace(text)},
		}},
	}, nil
}

// Read returns the contents of the resource at uri.
func (c *Catalog) Read(uri string) ([]Contents, error) {
	i, ok := c.byURI[uri]
	if !ok {
		return nil, apierr.NotFound("resource", uri)
	}
	r := c.resources[i]
	return []Contents{{URI: r.URI, MimeType: r.MimeType, Text: r.Text}}, nil
}
