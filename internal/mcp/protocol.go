// ABOUTME: JSON-RPC 2.0 envelopes and MCP message shapes shared by every transport.
// ABOUTME: Also maps the error taxonomy onto JSON-RPC error codes.

package mcp

import (
	"encoding/json"

	"github.com/2389/hcp-gateway/internal/apierr"
	"github.com/2389/hcp-gateway/internal/catalog"
	"github.com/2389/hcp-gateway/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise when the client asks for
// one we do not speak.
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for a request frame (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request or notification.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *JSONRPCRequest) IsNotification() bool {
	return len(r.ID) == 0
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Exactly one of Result
// and Error is set.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// Server error codes for platform failures.
const (
	CodeAuthentication = -32001
	CodeUpstream       = -32002
	CodeTransient      = -32003
	CodePaginationLoop = -32004
	CodeDecode         = -32005
)

var nullID = json.RawMessage("null")

// MCP-specific types

// InitializeParams are the params for initialize.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// Implementation names a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the result for initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string             `json:"name"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description"`
	InputSchema tools.Schema       `json:"inputSchema"`
	Annotations *tools.Annotations `json:"annotations,omitempty"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content           []MCPContent `json:"content"`
	StructuredContent any          `json:"structuredContent,omitempty"`
	IsError           bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MCPPromptInfo is one entry of prompts/list.
type MCPPromptInfo struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Arguments   []catalog.PromptArgument `json:"arguments,omitempty"`
}

// MCPListPromptsResult is the result for prompts/list.
type MCPListPromptsResult struct {
	Prompts []MCPPromptInfo `json:"prompts"`
}

// MCPGetPromptParams are the params for prompts/get.
type MCPGetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// MCPListResourcesResult is the result for resources/list.
type MCPListResourcesResult struct {
	Resources []catalog.Resource `json:"resources"`
}

// MCPReadResourceParams are the params for resources/read.
type MCPReadResourceParams struct {
	URI string `json:"uri"`
}

// MCPReadResourceResult is the result for resources/read.
type MCPReadResourceResult struct {
	Contents []catalog.Contents `json:"contents"`
}

// errorFor maps a taxonomy error onto a JSON-RPC error. Internal errors get a
// generic message; the caller logs the detail.
func errorFor(err error) *JSONRPCError {
	kind := apierr.KindOf(err)
	data := map[string]any{"kind": kind.String()}
	meta := apierr.Metadata(err)

	switch kind {
	case apierr.KindValidation:
		if fields, ok := meta["fields"]; ok {
			data["fields"] = fields
		}
		return &JSONRPCError{Code: JSONRPCInvalidParams, Message: apierr.Message(err), Data: data}
	case apierr.KindNotFound:
		return &JSONRPCError{Code: JSONRPCMethodNotFound, Message: apierr.Message(err), Data: data}
	case apierr.KindAuthentication:
		return &JSONRPCError{Code: CodeAuthentication, Message: apierr.Message(err), Data: data}
	case apierr.KindUpstream:
		data["status"] = apierr.Status(err)
		if body, ok := meta["body"]; ok {
			data["body"] = body
		}
		return &JSONRPCError{Code: CodeUpstream, Message: "upstream error: " + apierr.Message(err), Data: data}
	case apierr.KindTransient:
		data["status"] = apierr.Status(err)
		data["retryable"] = true
		return &JSONRPCError{Code: CodeTransient, Message: apierr.Message(err), Data: data}
	case apierr.KindPaginationLoop:
		return &JSONRPCError{Code: CodePaginationLoop, Message: apierr.Message(err), Data: data}
	case apierr.KindDecode:
		return &JSONRPCError{Code: CodeDecode, Message: apierr.Message(err), Data: data}
	default:
		return &JSONRPCError{Code: JSONRPCInternalError, Message: "internal error", Data: data}
	}
}
