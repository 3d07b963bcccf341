// ABOUTME: Declarative description of a platform API call exposed as an MCP tool.
// ABOUTME: Turns {name, params, method, path, list key} rows into tool definitions.

package hcp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/2389/hcp-gateway/internal/apierr"
	"github.com/2389/hcp-gateway/internal/downstream"
	"github.com/2389/hcp-gateway/internal/paginate"
	"github.com/2389/hcp-gateway/internal/tools"
)

// Platform API versions, one per service.
const (
	ResourceManagerVersion = "2019-12-10"
	IAMVersion             = "2019-12-10"
	SecretsVersion         = "2023-11-28"
	BillingVersion         = "2020-11-05"
	LogsVersion            = "2022-06-06"
)

const (
	pageTokenParam = "pagination.next_page_token"
	pageSizeParam  = "pagination.page_size"

	DefaultPageSize       = 50
	DefaultBillingAccount = "default-account"
)

// Caller is the request executor. *downstream.Client implements it.
type Caller interface {
	Call(ctx context.Context, method, path string, query url.Values, body any) (downstream.Result, error)
}

// Options tunes how operations run.
type Options struct {
	PageSize       int
	MaxPages       int
	BillingAccount string
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = paginate.DefaultMaxPages
	}
	if o.BillingAccount == "" {
		o.BillingAccount = DefaultBillingAccount
	}
	return o
}

// Location says where a parameter goes in the downstream request.
type Location int

const (
	InPath Location = iota
	InQuery
	InBody
)

// Param is one tool argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	In          Location
	// Field is the downstream name, dotted for nested body fields. Defaults to Name.
	Field   string
	Enum    []string
	Default any
}

func (p Param) field() string {
	if p.Field != "" {
		return p.Field
	}
	return p.Name
}

// Operation is one row of the tool table.
type Operation struct {
	Name        string
	Title       string
	Description string
	Method      string
	Path        string
	Params      []Param
	// Query and Body hold fixed values sent on every call. Body keys may be dotted.
	Query url.Values
	Body  map[string]any
	// ListKey marks a paginated list; items are read from this response field.
	ListKey  string
	ReadOnly bool
}

var pathParam = regexp.MustCompile(`\{([a-z_]+)\}`)

// Tool converts op into a registry definition bound to caller.
func (op Operation) Tool(caller Caller, opts Options) tools.Definition {
	opts = opts.withDefaults()

	props := make(map[string]tools.Property, len(op.Params)+2)
	var required []string
	for _, p := range op.Params {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		props[p.Name] = tools.Property{
			Type:        typ,
			Description: p.Description,
			Enum:        p.Enum,
			Default:     p.Default,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if op.ListKey != "" {
		props["page_size"] = tools.Property{Type: "integer", Description: "Items requested per page."}
		props["max_items"] = tools.Property{Type: "integer", Description: "Stop after this many items. Omit to fetch every page."}
	}

	readOnly := op.ReadOnly || op.Method == http.MethodGet
	return tools.Definition{
		Name:        op.Name,
		Description: op.Description,
		InputSchema: tools.ObjectSchema(props, required...),
		Annotations: tools.Annotations{
			Title:           op.Title,
			ReadOnlyHint:    readOnly,
			DestructiveHint: op.Method == http.MethodDelete,
			IdempotentHint:  readOnly || op.Method == http.MethodDelete,
		},
		Handler: func(ctx context.Context, args tools.Arguments) (any, error) {
			return op.run(ctx, caller, opts, args)
		},
	}
}

func (op Operation) run(ctx context.Context, caller Caller, opts Options, args tools.Arguments) (any, error) {
	args = op.applyDefaults(args)

	path, err := op.expandPath(args)
	if err != nil {
		return nil, err
	}
	query := cloneValues(op.Query)
	body := map[string]any{}
	for k, v := range op.Body {
		setDotted(body, k, v)
	}
	for _, p := range op.Params {
		if !args.Has(p.Name) {
			continue
		}
		switch p.In {
		case InQuery:
			query.Set(p.field(), formatValue(args[p.Name]))
		case InBody:
			setDotted(body, p.field(), args[p.Name])
		}
	}

	var payload any
	if len(body) > 0 {
		payload = body
	}

	if op.ListKey != "" {
		items, err := collect(ctx, caller, listRequest{
			method:   op.Method,
			path:     path,
			query:    query,
			body:     payload,
			listKey:  op.ListKey,
			pageSize: args.Int("page_size", opts.PageSize),
			maxPages: opts.MaxPages,
			limit:    args.Int("max_items", 0),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{op.ListKey: items, "count": len(items)}, nil
	}

	res, err := caller.Call(ctx, op.Method, path, query, payload)
	if err != nil {
		return nil, err
	}
	return resultValue(res)
}

func (op Operation) applyDefaults(args tools.Arguments) tools.Arguments {
	out := make(tools.Arguments, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	for _, p := range op.Params {
		if p.Default != nil && !out.Has(p.Name) {
			out[p.Name] = p.Default
		}
	}
	return out
}

func (op Operation) expandPath(args tools.Arguments) (string, error) {
	var missing []string
	path := pathParam.ReplaceAllStringFunc(op.Path, func(m string) string {
		name := m[1 : len(m)-1]
		v := formatValue(args[name])
		if v == "" {
			missing = append(missing, name)
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		fields := make(map[string]string, len(missing))
		for _, name := range missing {
			fields[name] = "required"
		}
		return "", apierr.Validation("missing path parameters: "+strings.Join(missing, ", "), fields)
	}
	return path, nil
}

type listRequest struct {
	method   string
	path     string
	query    url.Values
	body     any
	listKey  string
	pageSize int
	maxPages int
	limit    int
}

// collect walks every page of a list endpoint.
func collect(ctx context.Context, caller Caller, req listRequest) ([]any, error) {
	fetch := func(ctx context.Context, cursor string) (paginate.Page[any], error) {
		q := cloneValues(req.query)
		if req.pageSize > 0 {
			q.Set(pageSizeParam, strconv.Itoa(req.pageSize))
		}
		if cursor != "" {
			q.Set(pageTokenParam, cursor)
		}
		res, err := caller.Call(ctx, req.method, req.path, q, req.body)
		if err != nil {
			return paginate.Page[any]{}, err
		}

		var page map[string]any
		if err := res.Decode(&page); err != nil {
			return paginate.Page[any]{}, err
		}
		items, _ := page[req.listKey].([]any)
		var next string
		if p, ok := page["pagination"].(map[string]any); ok {
			next, _ = p["next_page_token"].(string)
		}
		return paginate.Page[any]{Items: items, Next: next}, nil
	}

	items, err := paginate.Accumulate(ctx, fetch, paginate.Options{MaxPages: req.maxPages, Limit: req.limit})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

func resultValue(res downstream.Result) (any, error) {
	if res.Empty {
		return map[string]any{"ok": true}, nil
	}
	return res.Value()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func setDotted(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
