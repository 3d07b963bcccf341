// ABOUTME: The table of platform operations exposed as tools.
// ABOUTME: Resource manager, IAM, Vault Secrets and billing endpoints declared as data.

package hcp

import (
	"net/http"
	"net/url"
)

var (
	rmBase      = "/resource-manager/" + ResourceManagerVersion
	iamBase     = "/iam/" + IAMVersion
	secretsBase = "/secrets/" + SecretsVersion + "/organizations/{organization_id}/projects/{project_id}/apps"
	billingBase = "/billing/" + BillingVersion + "/organizations/{organization_id}/accounts/{billing_account_id}"
)

func orgParam(in Location) Param {
	return Param{Name: "organization_id", Description: "Organization ID (UUID).", Required: true, In: in}
}

func projectParam(in Location) Param {
	return Param{Name: "project_id", Description: "Project ID (UUID).", Required: true, In: in}
}

func appParam() Param {
	return Param{Name: "app_name", Description: "Vault Secrets application name.", Required: true}
}

func principalParam() Param {
	return Param{Name: "service_principal_id", Description: "Service principal ID.", Required: true}
}

// Operations returns the operation table.
func Operations(opts Options) []Operation {
	opts = opts.withDefaults()
	billingAccount := Param{
		Name:        "billing_account_id",
		Description: "Billing account ID. Defaults to " + opts.BillingAccount + ".",
		Default:     opts.BillingAccount,
	}

	var ops []Operation
	ops = append(ops, resourceManagerOperations()...)
	ops = append(ops, iamOperations()...)
	ops = append(ops, secretsOperations()...)
	ops = append(ops, billingOperations(billingAccount)...)
	return ops
}

func resourceManagerOperations() []Operation {
	return []Operation{
		{
			Name:        "list_organizations",
			Title:       "List organizations",
			Description: "List every organization the service principal can access.",
			Method:      http.MethodGet,
			Path:        rmBase + "/organizations",
			ListKey:     "organizations",
		},
		{
			Name:        "get_organization",
			Title:       "Get organization",
			Description: "Get an organization by ID.",
			Method:      http.MethodGet,
			Path:        rmBase + "/organizations/{organization_id}",
			Params:      []Param{orgParam(InPath)},
		},
		{
			Name:        "list_projects",
			Title:       "List projects",
			Description: "List the projects of an organization.",
			Method:      http.MethodGet,
			Path:        rmBase + "/projects",
			Params:      []Param{{Name: "organization_id", Description: "Organization ID (UUID).", Required: true, In: InQuery, Field: "scope.id"}},
			Query:       url.Values{"scope.type": {"ORGANIZATION"}},
			ListKey:     "projects",
		},
		{
			Name:        "get_project",
			Title:       "Get project",
			Description: "Get a project by ID.",
			Method:      http.MethodGet,
			Path:        rmBase + "/projects/{project_id}",
			Params:      []Param{projectParam(InPath)},
		},
		{
			Name:        "create_project",
			Title:       "Create project",
			Description: "Create a project in an organization.",
			Method:      http.MethodPost,
			Path:        rmBase + "/projects",
			Params: []Param{
				{Name: "organization_id", Description: "Organization ID (UUID).", Required: true, In: InBody, Field: "parent.id"},
				{Name: "name", Description: "Project name.", Required: true, In: InBody},
				{Name: "description", Description: "Project description.", In: InBody},
			},
			Body: map[string]any{"parent.type": "ORGANIZATION"},
		},
		{
			Name:        "delete_project",
			Title:       "Delete project",
			Description: "Delete a project. This cannot be undone.",
			Method:      http.MethodDelete,
			Path:        rmBase + "/projects/{project_id}",
			Params:      []Param{projectParam(InPath)},
		},
		{
			Name:        "get_organization_iam_policy",
			Title:       "Get organization IAM policy",
			Description: "Get the IAM policy bound to an organization.",
			Method:      http.MethodGet,
			Path:        rmBase + "/organizations/{organization_id}:getIamPolicy",
			Params:      []Param{orgParam(InPath)},
		},
		{
			Name:        "get_project_iam_policy",
			Title:       "Get project IAM policy",
			Description: "Get the IAM policy bound to a project.",
			Method:      http.MethodGet,
			Path:        rmBase + "/projects/{project_id}:getIamPolicy",
			Params:      []Param{projectParam(InPath)},
		},
	}
}

func iamOperations() []Operation {
	spBase := iamBase + "/organizations/{organization_id}/service-principals"
	return []Operation{
		{
			Name:        "get_caller_identity",
			Title:       "Get caller identity",
			Description: "Describe the principal the gateway authenticates as.",
			Method:      http.MethodGet,
			Path:        iamBase + "/caller-identity",
		},
		{
			Name:        "list_organization_users",
			Title:       "List organization users",
			Description: "List the user principals of an organization.",
			Method:      http.MethodGet,
			Path:        iamBase + "/organizations/{organization_id}/user-principals",
			Params:      []Param{orgParam(InPath)},
			ListKey:     "users",
		},
		{
			Name:        "list_service_principals",
			Title:       "List service principals",
			Description: "List the organization-level service principals.",
			Method:      http.MethodGet,
			Path:        spBase,
			Params:      []Param{orgParam(InPath)},
			ListKey:     "service_principals",
		},
		{
			Name:        "get_service_principal",
			Title:       "Get service principal",
			Description: "Get an organization-level service principal.",
			Method:      http.MethodGet,
			Path:        spBase + "/{service_principal_id}",
			Params:      []Param{orgParam(InPath), principalParam()},
		},
		{
			Name:        "create_service_principal",
			Title:       "Create service principal",
			Description: "Create an organization-level service principal.",
			Method:      http.MethodPost,
			Path:        spBase,
			Params: []Param{
				orgParam(InPath),
				{Name: "name", Description: "Service principal name.", Required: true, In: InBody},
			},
		},
		{
			Name:        "delete_service_principal",
			Title:       "Delete service principal",
			Description: "Delete an organization-level service principal and its keys.",
			Method:      http.MethodDelete,
			Path:        spBase + "/{service_principal_id}",
			Params:      []Param{orgParam(InPath), principalParam()},
		},
		{
			Name:  "create_service_principal_key",
			Title: "Create service principal key",
			Description: "Create a key for a service principal. The returned client secret " +
				"is shown only once.",
			Method: http.MethodPost,
			Path:   iamBase + "/organizations/{organization_id}/service-principal-keys",
			Params: []Param{
				orgParam(InPath),
				{Name: "service_principal_id", Description: "Service principal ID.", Required: true, In: InBody, Field: "principal_id"},
			},
		},
		{
			Name:        "list_groups",
			Title:       "List groups",
			Description: "List the groups of an organization.",
			Method:      http.MethodGet,
			Path:        iamBase + "/iam/organization/{organization_id}/groups",
			Params:      []Param{orgParam(InPath)},
			ListKey:     "groups",
		},
	}
}

func secretsOperations() []Operation {
	scope := []Param{orgParam(InPath), projectParam(InPath)}
	withScope := func(extra ...Param) []Param {
		return append(append([]Param(nil), scope...), extra...)
	}
	secretName := Param{Name: "secret_name", Description: "Secret name.", Required: true}

	return []Operation{
		{
			Name:        "list_vault_apps",
			Title:       "List Vault Secrets apps",
			Description: "List the Vault Secrets applications of a project.",
			Method:      http.MethodGet,
			Path:        secretsBase,
			Params:      withScope(),
			ListKey:     "apps",
		},
		{
			Name:        "get_vault_app",
			Title:       "Get Vault Secrets app",
			Description: "Get a Vault Secrets application.",
			Method:      http.MethodGet,
			Path:        secretsBase + "/{app_name}",
			Params:      withScope(appParam()),
		},
		{
			Name:        "create_vault_app",
			Title:       "Create Vault Secrets app",
			Description: "Create a Vault Secrets application.",
			Method:      http.MethodPost,
			Path:        secretsBase,
			Params: withScope(
				Param{Name: "app_name", Description: "Application name.", Required: true, In: InBody, Field: "name"},
				Param{Name: "description", Description: "Application description.", In: InBody},
			),
		},
		{
			Name:        "delete_vault_app",
			Title:       "Delete Vault Secrets app",
			Description: "Delete a Vault Secrets application and all of its secrets.",
			Method:      http.MethodDelete,
			Path:        secretsBase + "/{app_name}",
			Params:      withScope(appParam()),
		},
		{
			Name:        "list_vault_secrets",
			Title:       "List Vault Secrets secrets",
			Description: "List secret metadata in an application. Values are not returned.",
			Method:      http.MethodGet,
			Path:        secretsBase + "/{app_name}/secrets",
			Params:      withScope(appParam()),
			ListKey:     "secrets",
		},
		{
			Name:        "create_vault_secret",
			Title:       "Create Vault Secrets secret",
			Description: "Create or version a key/value secret in an application.",
			Method:      http.MethodPost,
			Path:        secretsBase + "/{app_name}/secret/kv",
			Params: withScope(
				appParam(),
				Param{Name: "secret_name", Description: "Secret name.", Required: true, In: InBody, Field: "name"},
				Param{Name: "secret_value", Description: "Secret value.", Required: true, In: InBody, Field: "value"},
			),
		},
		{
			Name:        "open_vault_secret",
			Title:       "Open Vault Secrets secret",
			Description: "Read the current value of a secret. The response contains sensitive data.",
			Method:      http.MethodGet,
			Path:        secretsBase + "/{app_name}/secrets/{secret_name}:open",
			Params:      withScope(appParam(), secretName),
		},
		{
			Name:        "delete_vault_secret",
			Title:       "Delete Vault Secrets secret",
			Description: "Delete a secret and all of its versions.",
			Method:      http.MethodDelete,
			Path:        secretsBase + "/{app_name}/secrets/{secret_name}",
			Params:      withScope(appParam(), secretName),
		},
	}
}

func billingOperations(account Param) []Operation {
	return []Operation{
		{
			Name:        "list_billing_statements",
			Title:       "List billing statements",
			Description: "List the billing statement overviews of a billing account.",
			Method:      http.MethodGet,
			Path:        billingBase + "/statements",
			Params:      []Param{orgParam(InPath), account},
			ListKey:     "statement_overviews",
		},
		{
			Name:        "get_billing_statement",
			Title:       "Get billing statement",
			Description: "Get a billing statement with its line items.",
			Method:      http.MethodGet,
			Path:        billingBase + "/statements/{statement_id}",
			Params: []Param{
				orgParam(InPath),
				account,
				{Name: "statement_id", Description: "Statement ID.", Required: true},
			},
		},
		{
			Name:        "get_running_statement",
			Title:       "Get running statement",
			Description: "Get the statement for the current, still open billing period.",
			Method:      http.MethodGet,
			Path:        billingBase + "/running-statement",
			Params:      []Param{orgParam(InPath), account},
		},
	}
}
