// ABOUTME: Tests for JSON-RPC dispatch against httptest auth and platform servers.
// ABOUTME: Covers id echo, error mapping, lifecycle and tool/prompt/resource methods.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/downstream"
	"github.com/2389/hcp-gateway/internal/hcp"
	"github.com/2389/hcp-gateway/internal/tools"
)

// testEnv wires a dispatcher to fake auth and platform servers.
type testEnv struct {
	dispatcher    *Dispatcher
	credentials   *credential.Manager
	authHits      *atomic.Int32
	platformHits  *atomic.Int32
	authorization *atomic.Value
}

type envOptions struct {
	authStatus int // 0 issues a token
	platform   http.HandlerFunc
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	env := &testEnv{
		authHits:      &atomic.Int32{},
		platformHits:  &atomic.Int32{},
		authorization: &atomic.Value{},
	}

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.authHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if opts.authStatus != 0 {
			w.WriteHeader(opts.authStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"platform-token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(authSrv.Close)

	platform := opts.platform
	if platform == nil {
		platform = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}
	}
	platformSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.platformHits.Add(1)
		env.authorization.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		platform(w, r)
	}))
	t.Cleanup(platformSrv.Close)

	env.credentials = credential.NewManager(credential.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Audience:     "https://api.hashicorp.cloud",
		TokenURL:     authSrv.URL,
		HTTPClient:   authSrv.Client(),
	})
	client := downstream.NewClient(downstream.Config{
		BaseURL:     platformSrv.URL,
		Credentials: env.credentials,
		HTTPClient:  platformSrv.Client(),
		MaxAttempts: 1,
	})
	registry, err := hcp.NewRegistry(client, hcp.Options{})
	require.NoError(t, err)
	cat, err := hcp.NewCatalog()
	require.NoError(t, err)

	env.dispatcher, err = NewDispatcher(Config{
		Tools:         registry,
		Catalog:       cat,
		ServerVersion: "test",
	})
	require.NoError(t, err)
	return env
}

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error"`
}

func send(t *testing.T, d *Dispatcher, frame string) testResponse {
	t.Helper()
	out := d.HandleMessage(context.Background(), []byte(frame))
	require.NotNil(t, out, "expected a response to %s", frame)
	var resp testResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func errorData(t *testing.T, resp testResponse) map[string]any {
	t.Helper()
	require.NotNil(t, resp.Error)
	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok, "error data should be an object, got %T", resp.Error.Data)
	return data
}

func TestResponseEchoesID(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, id := range []string{`"abc"`, `7`, `-3`, `null`, `"1e3"`, `true`, `false`} {
		t.Run("ping "+id, func(t *testing.T) {
			resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":`+id+`,"method":"ping"}`)
			assert.JSONEq(t, id, string(resp.ID))
			assert.Nil(t, resp.Error)
			assert.JSONEq(t, `{}`, string(resp.Result))
		})
		t.Run("error "+id, func(t *testing.T) {
			resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":`+id+`,"method":"no/such/method"}`)
			assert.JSONEq(t, id, string(resp.ID))
			require.NotNil(t, resp.Error)
			assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
		})
	}
}

func TestMalformedFrames(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name  string
		frame string
		code  int
		id    string
	}{
		{"invalid json", `{"jsonrpc":`, JSONRPCParseError, `null`},
		{"batch", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, JSONRPCInvalidRequest, `null`},
		{"wrong version", `{"jsonrpc":"1.0","id":4,"method":"ping"}`, JSONRPCInvalidRequest, `4`},
		{"missing method", `{"jsonrpc":"2.0","id":"x"}`, JSONRPCInvalidRequest, `"x"`},
		{"object id", `{"jsonrpc":"2.0","id":{},"method":"ping"}`, JSONRPCInvalidRequest, `null`},
		{"array id", `{"jsonrpc":"2.0","id":[1],"method":"ping"}`, JSONRPCInvalidRequest, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, env.dispatcher, tt.frame)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.JSONEq(t, tt.id, string(resp.ID))
		})
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	assert.Nil(t, env.dispatcher.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	assert.Nil(t, env.dispatcher.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list"}`)))
	assert.Zero(t, env.authHits.Load())
}

func TestInitializeNegotiatesVersion(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		requested string
		want      string
	}{
		{"2025-06-18", "2025-06-18"},
		{"2025-03-26", "2025-03-26"},
		{"1999-01-01", latestProtocolVersion},
		{"", latestProtocolVersion},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"`+tt.requested+`","clientInfo":{"name":"test"}}}`)
			require.Nil(t, resp.Error)

			var result InitializeResult
			require.NoError(t, json.Unmarshal(resp.Result, &result))
			assert.Equal(t, tt.want, result.ProtocolVersion)
			assert.Equal(t, "hcp-gateway", result.ServerInfo.Name)
			assert.Contains(t, result.Capabilities, "tools")
			assert.Contains(t, result.Capabilities, "prompts")
			assert.Contains(t, result.Capabilities, "resources")
		})
	}
	assert.Zero(t, env.authHits.Load(), "initialize must not exchange credentials")
}

func TestToolsList(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	var result struct {
		Tools []struct {
			Name        string            `json:"name"`
			InputSchema tools.Schema      `json:"inputSchema"`
			Annotations tools.Annotations `json:"annotations"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	byName := make(map[string]int, len(result.Tools))
	for i, tool := range result.Tools {
		byName[tool.Name] = i
	}
	require.Contains(t, byName, "get_project")
	require.Contains(t, byName, "delete_project")

	getProject := result.Tools[byName["get_project"]]
	assert.Equal(t, "object", getProject.InputSchema.Type)
	assert.Contains(t, getProject.InputSchema.Required, "project_id")
	assert.True(t, getProject.Annotations.ReadOnlyHint)
	assert.True(t, result.Tools[byName["delete_project"]].Annotations.DestructiveHint)
}

func TestToolCallSuccess(t *testing.T) {
	env := newTestEnv(t, envOptions{platform: func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource-manager/2019-12-10/projects/p-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"project":{"id":"p-1","name":"alpha"}}`))
	}})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"get_project","arguments":{"project_id":"p-1"}}}`)
	require.Nil(t, resp.Error)

	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.JSONEq(t, `{"project":{"id":"p-1","name":"alpha"}}`, result.Content[0].Text)
	assert.False(t, result.IsError)
	assert.NotNil(t, result.StructuredContent)

	assert.Equal(t, "Bearer platform-token", env.authorization.Load())
	assert.Equal(t, int32(1), env.authHits.Load())
}

func TestUnknownToolNeverReachesPlatform(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"launch_rocket","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
	assert.Zero(t, env.authHits.Load())
	assert.Zero(t, env.platformHits.Load())
}

func TestMissingParameterNeverReachesPlatform(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":"m","method":"tools/call","params":{"name":"get_project","arguments":{}}}`)
	assert.JSONEq(t, `"m"`, string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)

	data := errorData(t, resp)
	assert.Equal(t, "validation", data["kind"])
	fields, ok := data["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "project_id")

	assert.Zero(t, env.authHits.Load())
	assert.Zero(t, env.platformHits.Load())
}

func TestAuthenticationFailureSurfaces(t *testing.T) {
	env := newTestEnv(t, envOptions{authStatus: http.StatusUnauthorized})

	for range 2 {
		resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_organizations"}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeAuthentication, resp.Error.Code)
		assert.Equal(t, "authentication", errorData(t, resp)["kind"])
		assert.NotContains(t, resp.Error.Message, "secret")
	}

	// The second call lands inside the failure cooldown.
	assert.Equal(t, int32(1), env.authHits.Load())
	assert.Zero(t, env.platformHits.Load())
	assert.Equal(t, credential.StateFailed, env.credentials.Status().State)
}

func TestUpstreamErrorMapping(t *testing.T) {
	env := newTestEnv(t, envOptions{platform: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":5,"message":"project not found","client_secret":"leak"}`))
	}})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_project","arguments":{"project_id":"missing"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUpstream, resp.Error.Code)

	data := errorData(t, resp)
	assert.Equal(t, "upstream", data["kind"])
	assert.EqualValues(t, http.StatusNotFound, data["status"])
	body, ok := data["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "project not found", body["message"])
	assert.Equal(t, "[REDACTED]", body["client_secret"])
}

func TestTransientErrorMapping(t *testing.T) {
	env := newTestEnv(t, envOptions{platform: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_organizations"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTransient, resp.Error.Code)
	assert.Equal(t, true, errorData(t, resp)["retryable"])
}

func TestPrompts(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	require.Nil(t, resp.Error)
	var list MCPListPromptsResult
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	assert.NotEmpty(t, list.Prompts)

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"list_projects","arguments":{"organization_id":"org-1"}}}`)
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "org-1")

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"list_projects"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":4,"method":"prompts/get","params":{"name":"nope"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
}

func TestResources(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), "hcp://schema/project")

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"hcp://schema/project"}}`)
	require.Nil(t, resp.Error)
	var read MCPReadResourceResult
	require.NoError(t, json.Unmarshal(resp.Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "hcp://schema/project", read.Contents[0].URI)
	assert.NotEmpty(t, read.Contents[0].Text)

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"hcp://schema/nothing"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":4,"method":"resources/templates/list"}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"resourceTemplates":[]}`, string(resp.Result))
}

func TestShutdownThenExit(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := send(t, env.dispatcher, `{"jsonrpc":"2.0","id":1,"method":"shutdown"}`)
	require.Nil(t, resp.Error)

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidRequest, resp.Error.Code)

	select {
	case <-env.dispatcher.Done():
		t.Fatal("done closed before exit")
	default:
	}

	resp = send(t, env.dispatcher, `{"jsonrpc":"2.0","id":3,"method":"exit"}`)
	require.Nil(t, resp.Error)
	<-env.dispatcher.Done()
}

func TestPanickingToolBecomesInternalError(t *testing.T) {
	registry, err := tools.NewRegistry(tools.Definition{
		Name:        "explode",
		Description: "panics",
		InputSchema: tools.ObjectSchema(nil),
		Handler: func(context.Context, tools.Arguments) (any, error) {
			panic("boom")
		},
	})
	require.NoError(t, err)
	d, err := NewDispatcher(Config{Tools: registry})
	require.NoError(t, err)

	resp := send(t, d, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"explode"}}`)
	assert.JSONEq(t, `5`, string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInternalError, resp.Error.Code)
	assert.Equal(t, "internal error", resp.Error.Message)
}

func TestArrayResultIsTextOnly(t *testing.T) {
	registry, err := tools.NewRegistry(tools.Definition{
		Name:        "numbers",
		Description: "returns a list",
		InputSchema: tools.ObjectSchema(nil),
		Handler: func(context.Context, tools.Arguments) (any, error) {
			return []int{1, 2, 3}, nil
		},
	})
	require.NoError(t, err)
	d, err := NewDispatcher(Config{Tools: registry})
	require.NoError(t, err)

	resp := send(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"numbers"}}`)
	require.Nil(t, resp.Error)
	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "[1,2,3]", result.Content[0].Text)
	assert.Nil(t, result.StructuredContent)
}

func TestNewDispatcherRequiresTools(t *testing.T) {
	_, err := NewDispatcher(Config{})
	require.Error(t, err)
}
