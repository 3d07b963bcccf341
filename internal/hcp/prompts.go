// ABOUTME: Prompt templates that guide a client through common platform workflows.

package hcp

import "github.com/2389/hcp-gateway/internal/catalog"

const systemGuidance = `You are working with the HashiCorp Cloud Platform through this server's tools.
Organizations, projects and service principals are addressed by UUID. When the user names
a resource instead, resolve it first with find_organization_by_name or find_project_by_name.
Confirm scope and intent before any create or delete. Treat secret values and newly issued
client secrets as sensitive: warn the user before showing them.`

func arg(name, description string) catalog.PromptArgument {
	return catalog.PromptArgument{Name: name, Description: description, Required: true}
}

func optionalArg(name, description string) catalog.PromptArgument {
	return catalog.PromptArgument{Name: name, Description: description}
}

// Prompts returns the prompt catalog.
func Prompts() []catalog.Prompt {
	return []catalog.Prompt{
		{
			Name:        "hcp_overview",
			Description: "General guidance for working with the platform tools.",
			Guidance:    systemGuidance,
		},
		{
			Name:        "list_organizations",
			Description: "List the organizations available to the gateway.",
			Template:    "List all organizations.",
		},
		{
			Name:        "list_projects",
			Description: "List the projects of an organization.",
			Arguments:   []catalog.PromptArgument{arg("organization_id", "Organization ID.")},
			Template:    "List all projects for organization {organization_id}.",
		},
		{
			Name:        "get_project",
			Description: "Show one project.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_id", "Project ID."),
			},
			Template: "Get project {project_id} for organization {organization_id}.",
		},
		{
			Name:        "create_project",
			Description: "Create a project.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("name", "Project name."),
				optionalArg("description", "Project description."),
			},
			Template: "Create a new project named {name} for organization {organization_id}. Description: {description}",
		},
		{
			Name:        "delete_project",
			Description: "Delete a project after confirming with the user.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_id", "Project ID."),
			},
			Guidance: "Deleting a project cannot be undone. Confirm with the user first.",
			Template: "Delete project {project_id} for organization {organization_id}.",
		},
		{
			Name:        "list_users",
			Description: "List the users of an organization.",
			Arguments:   []catalog.PromptArgument{arg("organization_id", "Organization ID.")},
			Template:    "List users in organization {organization_id}.",
		},
		{
			Name:        "create_service_principal_with_key",
			Description: "Create a service principal and issue a key for it.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("name", "Service principal name."),
			},
			Guidance: "Call create_service_principal, take the id from the response, then call " +
				"create_service_principal_key with it. Tell the user the client secret is shown only once.",
			Template: "Create a service principal named {name} in organization {organization_id} and generate a key for it.",
		},
		{
			Name:        "list_secrets",
			Description: "List the secrets of a Vault Secrets application.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_id", "Project ID."),
				arg("app_name", "Application name."),
			},
			Template: "List all secrets for application {app_name} in project {project_id} of organization {organization_id}.",
		},
		{
			Name:        "open_secret",
			Description: "Reveal a secret value.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_id", "Project ID."),
				arg("app_name", "Application name."),
				arg("secret_name", "Secret name."),
			},
			Guidance: "open_vault_secret returns sensitive data. Warn the user before displaying it.",
			Template: "Show me the value of secret {secret_name} in app {app_name} under project {project_id} of organization {organization_id}.",
		},
		{
			Name:        "find_project_and_list_secrets",
			Description: "Find a project by name and list the secrets of one of its applications.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_name", "Project name."),
				arg("app_name", "Application name."),
			},
			Guidance: "Resolve the project with find_project_by_name, then call list_vault_secrets.",
			Template: "Find project {project_name} for organization {organization_id} and list its secrets for application {app_name}.",
		},
		{
			Name:        "find_project_and_delete_project",
			Description: "Find a project by name and delete it.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("project_name", "Project name."),
			},
			Guidance: "Resolve the project with find_project_by_name and confirm with the user before delete_project.",
			Template: "Find project {project_name} for organization {organization_id} and delete it.",
		},
		{
			Name:        "billing_summary",
			Description: "Summarize spend over a period.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				optionalArg("start", "RFC3339 range start."),
				optionalArg("end", "RFC3339 range end."),
			},
			Guidance: "Use get_billing_summary. Omit start and end for the current billing cycle.",
			Template: "Summarize billing for organization {organization_id} from {start} to {end}.",
		},
		{
			Name:        "audit_activity",
			Description: "Review recent audit log activity.",
			Arguments: []catalog.PromptArgument{
				arg("organization_id", "Organization ID."),
				arg("start", "RFC3339 range start."),
				arg("end", "RFC3339 range end."),
				optionalArg("project_id", "Restrict to one project."),
			},
			Template: "Search the audit logs of organization {organization_id} between {start} and {end} for project {project_id} and summarize notable activity.",
		},
	}
}
