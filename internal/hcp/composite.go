// ABOUTME: Tools composed from several platform calls: name finders, audit log search, billing summary.
// ABOUTME: They reuse the list machinery of the operation table.

package hcp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389/hcp-gateway/internal/apierr"
	"github.com/2389/hcp-gateway/internal/tools"
)

// DefaultAuditTopic is searched when no query, topic or project narrows a log search.
const DefaultAuditTopic = "hashicorp.platform.audit"

func compositeTools(caller Caller, opts Options) []tools.Definition {
	c := &composites{caller: caller, opts: opts}
	return []tools.Definition{
		{
			Name:        "find_organization_by_name",
			Description: "Resolve an organization name to its ID.",
			InputSchema: tools.ObjectSchema(map[string]tools.Property{
				"name": {Type: "string", Description: "Organization name."},
			}, "name"),
			Annotations: readOnly("Find organization by name"),
			Handler:     c.findOrganization,
		},
		{
			Name:        "find_project_by_name",
			Description: "Resolve a project name to its ID within an organization.",
			InputSchema: tools.ObjectSchema(map[string]tools.Property{
				"organization_id": {Type: "string", Description: "Organization ID (UUID)."},
				"name":            {Type: "string", Description: "Project name."},
			}, "organization_id", "name"),
			Annotations: readOnly("Find project by name"),
			Handler:     c.findProject,
		},
		{
			Name:        "find_user_by_email",
			Description: "Find an organization user by email address.",
			InputSchema: tools.ObjectSchema(map[string]tools.Property{
				"organization_id": {Type: "string", Description: "Organization ID (UUID)."},
				"email":           {Type: "string", Description: "Email address."},
			}, "organization_id", "email"),
			Annotations: readOnly("Find user by email"),
			Handler:     c.findUser,
		},
		{
			Name: "search_audit_logs",
			Description: "Search organization audit log entries between two RFC3339 timestamps. " +
				"Without a query, topic or project the platform audit topic is searched.",
			InputSchema: tools.ObjectSchema(map[string]tools.Property{
				"organization_id": {Type: "string", Description: "Organization ID (UUID)."},
				"start":           {Type: "string", Format: "date-time", Description: "Range start, RFC3339."},
				"end":             {Type: "string", Format: "date-time", Description: "Range end, RFC3339."},
				"query":           {Type: "string", Description: "Additional log query expression."},
				"topic":           {Type: "string", Description: "Log topic selector."},
				"project_id":      {Type: "string", Description: "Restrict to one project."},
			}, "organization_id", "start", "end"),
			Annotations: readOnly("Search audit logs"),
			Handler:     c.searchAuditLogs,
		},
		{
			Name: "get_billing_summary",
			Description: "Summarize billing for an organization. Without start and end the running " +
				"statement is summarized; otherwise statements whose period starts in [start, end) are totalled.",
			InputSchema: tools.ObjectSchema(map[string]tools.Property{
				"organization_id":    {Type: "string", Description: "Organization ID (UUID)."},
				"billing_account_id": {Type: "string", Description: "Billing account ID.", Default: opts.BillingAccount},
				"start":              {Type: "string", Format: "date-time", Description: "Range start, RFC3339."},
				"end":                {Type: "string", Format: "date-time", Description: "Range end, RFC3339."},
			}, "organization_id"),
			Annotations: readOnly("Billing summary"),
			Handler:     c.billingSummary,
		},
	}
}

func readOnly(title string) tools.Annotations {
	return tools.Annotations{Title: title, ReadOnlyHint: true, IdempotentHint: true}
}

type composites struct {
	caller Caller
	opts   Options
}

func (c *composites) list(ctx context.Context, path string, query url.Values, key string) ([]any, error) {
	return collect(ctx, c.caller, listRequest{
		method:   http.MethodGet,
		path:     path,
		query:    query,
		listKey:  key,
		pageSize: c.opts.PageSize,
		maxPages: c.opts.MaxPages,
	})
}

// findByField returns the first item whose field equals want, falling back to
// a case-insensitive match.
func findByField(items []any, field, want string) (map[string]any, bool) {
	var loose map[string]any
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		got, _ := m[field].(string)
		if got == want {
			return m, true
		}
		if loose == nil && strings.EqualFold(got, want) {
			loose = m
		}
	}
	return loose, loose != nil
}

func foundResult(kind string, item map[string]any, ok bool, key, value string) map[string]any {
	if !ok {
		return map[string]any{"found": false, key: value}
	}
	return map[string]any{"found": true, kind: item}
}

func (c *composites) findOrganization(ctx context.Context, args tools.Arguments) (any, error) {
	items, err := c.list(ctx, rmBase+"/organizations", nil, "organizations")
	if err != nil {
		return nil, err
	}
	name := args.String("name")
	org, ok := findByField(items, "name", name)
	return foundResult("organization", org, ok, "name", name), nil
}

func (c *composites) findProject(ctx context.Context, args tools.Arguments) (any, error) {
	query := url.Values{"scope.type": {"ORGANIZATION"}, "scope.id": {args.String("organization_id")}}
	items, err := c.list(ctx, rmBase+"/projects", query, "projects")
	if err != nil {
		return nil, err
	}
	name := args.String("name")
	project, ok := findByField(items, "name", name)
	return foundResult("project", project, ok, "name", name), nil
}

func (c *composites) findUser(ctx context.Context, args tools.Arguments) (any, error) {
	path := iamBase + "/organizations/" + url.PathEscape(args.String("organization_id")) + "/user-principals"
	items, err := c.list(ctx, path, nil, "users")
	if err != nil {
		return nil, err
	}
	email := args.String("email")
	user, ok := findByField(items, "email", email)
	return foundResult("user", user, ok, "email", email), nil
}

func parseRange(args tools.Arguments) (time.Time, time.Time, error) {
	fields := map[string]string{}
	start, err := time.Parse(time.RFC3339, args.String("start"))
	if err != nil {
		fields["start"] = "must be an RFC3339 timestamp"
	}
	end, err := time.Parse(time.RFC3339, args.String("end"))
	if err != nil {
		fields["end"] = "must be an RFC3339 timestamp"
	}
	if len(fields) == 0 && !end.After(start) {
		fields["end"] = "must be after start"
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, apierr.Validation("invalid time range", fields)
	}
	return start.UTC(), end.UTC(), nil
}

// auditQuery builds the selector expression for a log search.
func auditQuery(query, topic, projectID string) string {
	if query == "" && topic == "" && projectID == "" {
		topic = DefaultAuditTopic
	}
	var selectors []string
	if topic != "" {
		selectors = append(selectors, fmt.Sprintf("topic=%q", topic))
	}
	if projectID != "" {
		selectors = append(selectors, fmt.Sprintf("project_id=%q", projectID))
	}
	var sel string
	if len(selectors) > 0 {
		sel = "{" + strings.Join(selectors, ",") + "}"
	}
	return strings.TrimSpace(sel + " " + query)
}

func (c *composites) searchAuditLogs(ctx context.Context, args tools.Arguments) (any, error) {
	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	orgID := args.String("organization_id")
	body := map[string]any{
		"organization_id": orgID,
		"query":           auditQuery(args.String("query"), args.String("topic"), args.String("project_id")),
		"start":           start.Format(time.RFC3339),
		"end":             end.Format(time.RFC3339),
	}
	path := "/logs/" + LogsVersion + "/organizations/" + url.PathEscape(orgID) + "/entries/preview/search"
	res, err := c.caller.Call(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return resultValue(res)
}

func (c *composites) billingSummary(ctx context.Context, args tools.Arguments) (any, error) {
	orgID := args.String("organization_id")
	account := args.String("billing_account_id")
	if account == "" {
		account = c.opts.BillingAccount
	}
	base := "/billing/" + BillingVersion + "/organizations/" + url.PathEscape(orgID) + "/accounts/" + url.PathEscape(account)

	if !args.Has("start") && !args.Has("end") {
		res, err := c.caller.Call(ctx, http.MethodGet, base+"/running-statement", nil, nil)
		if err != nil {
			return nil, err
		}
		var body map[string]any
		if err := res.Decode(&body); err != nil {
			return nil, err
		}
		running, _ := body["running_statement"].(map[string]any)
		return map[string]any{
			"organization_id":    orgID,
			"billing_account_id": account,
			"summary_type":       "current_cycle",
			"period_start":       running["billing_period_start"],
			"period_end":         running["billing_period_end"],
			"total":              running["total"],
			"resources":          running["resources"],
		}, nil
	}

	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	overviews, err := c.list(ctx, base+"/statements", nil, "statement_overviews")
	if err != nil {
		return nil, err
	}

	statements := []any{}
	var total float64
	for _, item := range overviews {
		overview, ok := item.(map[string]any)
		if !ok {
			continue
		}
		periodStart, err := time.Parse(time.RFC3339, fmt.Sprint(overview["billing_period_start"]))
		if err != nil || periodStart.Before(start) || !periodStart.Before(end) {
			continue
		}
		id, _ := overview["id"].(string)
		res, err := c.caller.Call(ctx, http.MethodGet, base+"/statements/"+url.PathEscape(id), nil, nil)
		if err != nil {
			return nil, err
		}
		detail, err := res.Value()
		if err != nil {
			return nil, err
		}
		statements = append(statements, detail)
		total += statementTotal(detail, overview)
	}

	return map[string]any{
		"organization_id":      orgID,
		"billing_account_id":   account,
		"summary_type":         "historical",
		"start":                start.Format(time.RFC3339),
		"end":                  end.Format(time.RFC3339),
		"number_of_statements": len(statements),
		"total":                strconv.FormatFloat(total, 'f', 2, 64),
		"statements":           statements,
	}, nil
}

// statementTotal reads "total" from the detailed statement, or from the
// overview when the detail does not carry one. Totals arrive as decimal strings.
func statementTotal(detail any, overview map[string]any) float64 {
	candidates := []any{overview["total"]}
	if m, ok := detail.(map[string]any); ok {
		if s, ok := m["statement"].(map[string]any); ok {
			candidates = append([]any{s["total"]}, candidates...)
		}
		candidates = append([]any{m["total"]}, candidates...)
	}
	for _, c := range candidates {
		switch v := c.(type) {
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		case float64:
			return v
		}
	}
	return 0
}
