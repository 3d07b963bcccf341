// ABOUTME: JSON schema documents for the platform objects returned by tools.

package hcp

import (
	"encoding/json"

	"github.com/2389/hcp-gateway/internal/catalog"
)

const schemaMime = "application/schema+json"

type field struct {
	name, typ, description string
}

func objectSchema(title string, required []string, fields ...field) string {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.name] = map[string]string{"type": f.typ, "description": f.description}
	}
	doc := map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"title":      title,
		"type":       "object",
		"properties": props,
		"required":   required,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Resources returns the resource catalog.
func Resources() []catalog.Resource {
	return []catalog.Resource{
		{
			URI:         "hcp://schema/organization",
			Name:        "organization",
			Description: "An HCP organization.",
			MimeType:    schemaMime,
			Text: objectSchema("organization", []string{"id", "name"},
				field{"id", "string", "Organization ID."},
				field{"name", "string", "Organization name."},
				field{"state", "string", "Lifecycle state."},
				field{"created_at", "string", "Creation timestamp."},
			),
		},
		{
			URI:         "hcp://schema/project",
			Name:        "project",
			Description: "An HCP project.",
			MimeType:    schemaMime,
			Text: objectSchema("project", []string{"id", "name", "parent"},
				field{"id", "string", "Project ID."},
				field{"name", "string", "Project name."},
				field{"description", "string", "Project description."},
				field{"parent", "object", "Owning organization as {type, id}."},
				field{"state", "string", "Lifecycle state."},
				field{"created_at", "string", "Creation timestamp."},
			),
		},
		{
			URI:         "hcp://schema/user",
			Name:        "user",
			Description: "A user principal of an organization.",
			MimeType:    schemaMime,
			Text: objectSchema("user", []string{"id", "email"},
				field{"id", "string", "User principal ID."},
				field{"full_name", "string", "Display name."},
				field{"email", "string", "Email address."},
			),
		},
		{
			URI:         "hcp://schema/service-principal",
			Name:        "service-principal",
			Description: "A machine identity that authenticates with client credentials.",
			MimeType:    schemaMime,
			Text: objectSchema("service-principal", []string{"id", "name"},
				field{"id", "string", "Service principal ID."},
				field{"name", "string", "Service principal name."},
				field{"resource_name", "string", "Fully qualified resource name."},
				field{"organization_id", "string", "Owning organization."},
				field{"created_at", "string", "Creation timestamp."},
			),
		},
		{
			URI:         "hcp://schema/vault-app",
			Name:        "vault-app",
			Description: "A Vault Secrets application.",
			MimeType:    schemaMime,
			Text: objectSchema("vault-app", []string{"name"},
				field{"name", "string", "Application name."},
				field{"description", "string", "Application description."},
				field{"secret_count", "integer", "Number of secrets."},
				field{"created_at", "string", "Creation timestamp."},
			),
		},
		{
			URI:         "hcp://schema/vault-secret",
			Name:        "vault-secret",
			Description: "A Vault Secrets secret. Values appear only in open_vault_secret results.",
			MimeType:    schemaMime,
			Text: objectSchema("vault-secret", []string{"name"},
				field{"name", "string", "Secret name."},
				field{"type", "string", "Secret type, e.g. kv."},
				field{"latest_version", "integer", "Latest version number."},
				field{"static_version", "object", "Current version; carries value when opened."},
				field{"created_at", "string", "Creation timestamp."},
			),
		},
	}
}

// NewCatalog builds the prompt and resource catalog.
func NewCatalog() (*catalog.Catalog, error) {
	return catalog.New(Prompts(), Resources())
}
