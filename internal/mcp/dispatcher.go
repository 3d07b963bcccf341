// ABOUTME: Transport-independent MCP dispatcher routing JSON-RPC methods to tools, prompts and resources.
// ABOUTME: Echoes request ids verbatim and maps every failure onto a JSON-RPC error.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389/hcp-gateway/internal/apierr"
	"github.com/2389/hcp-gateway/internal/catalog"
	"github.com/2389/hcp-gateway/internal/tools"
)

// Config holds configuration for the dispatcher.
type Config struct {
	Tools         *tools.Registry
	Catalog       *catalog.Catalog
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
	Instructions  string
}

// Dispatcher handles decoded JSON-RPC requests. It holds no per-request state;
// the only lifecycle it tracks is shutdown followed by exit.
type Dispatcher struct {
	tools        *tools.Registry
	catalog      *catalog.Catalog
	logger       *slog.Logger
	info         Implementation
	instructions string

	shuttingDown atomic.Bool
	done         chan struct{}
	doneOnce     sync.Once
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Tools == nil {
		return nil, errors.New("tool registry is required")
	}
	cat := cfg.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.New(nil, nil); err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ServerName
	if name == "" {
		name = "hcp-gateway"
	}
	return &Dispatcher{
		tools:        cfg.Tools,
		catalog:      cat,
		logger:       logger,
		info:         Implementation{Name: name, Version: cfg.ServerVersion},
		instructions: cfg.Instructions,
		done:         make(chan struct{}),
	}, nil
}

// Done is closed once an exit request has been handled.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// HandleMessage decodes one frame and dispatches it. It returns the encoded
// response, or nil when the frame was a notification.
func (d *Dispatcher) HandleMessage(ctx context.Context, raw []byte) []byte {
	req, rpcErr := decodeRequest(raw)
	var resp *JSONRPCResponse
	if rpcErr != nil {
		resp = &JSONRPCResponse{JSONRPC: "2.0", ID: nullID, Error: rpcErr}
		if req != nil && len(req.ID) > 0 {
			resp.ID = req.ID
		}
	} else {
		resp = d.Dispatch(ctx, req)
	}
	if resp == nil {
		return nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		d.logger.Error("failed to encode JSON-RPC response", "error", err)
		out, _ = json.Marshal(&JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &JSONRPCError{Code: JSONRPCInternalError, Message: "internal error"},
		})
	}
	return out
}

// decodeRequest parses and validates a frame. A non-nil request is returned
// alongside an error when the id could still be recovered.
func decodeRequest(raw []byte) (*JSONRPCRequest, *JSONRPCError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "batch requests are not supported"}
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, &JSONRPCError{Code: JSONRPCParseError, Message: "invalid JSON"}
	}
	if req.JSONRPC != "2.0" {
		return &req, &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "invalid JSON-RPC version"}
	}
	if req.Method == "" {
		return &req, &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "method is required"}
	}
	if len(req.ID) > 0 && !validID(req.ID) {
		return nil, &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "id must be a JSON scalar or null"}
	}
	return &req, nil
}

func validID(id json.RawMessage) bool {
	switch id[0] {
	case '"', '-', 'n', 't', 'f', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}

// Dispatch routes req to its method handler. Notifications yield a nil response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *JSONRPCRequest) (resp *JSONRPCResponse) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic while handling MCP request",
				"method", req.Method,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			resp = d.errorResponse(req, &JSONRPCError{Code: JSONRPCInternalError, Message: "internal error"})
		}
		d.logger.Debug("MCP request",
			"method", req.Method,
			"is_notification", req.IsNotification(),
			"duration", time.Since(start),
			"is_error", resp != nil && resp.Error != nil,
		)
	}()

	if req.IsNotification() {
		d.handleNotification(req)
		return nil
	}

	if d.shuttingDown.Load() && req.Method != "exit" {
		return d.errorResponse(req, &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "server is shutting down"})
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "initialize":
		result, err = d.initialize(req.Params)
	case "ping":
		result = struct{}{}
	case "shutdown":
		d.shuttingDown.Store(true)
		result = struct{}{}
	case "exit":
		d.exit()
		result = struct{}{}
	case "tools/list":
		result = d.listTools()
	case "tools/call":
		result, err = d.callTool(ctx, req.Params)
	case "prompts/list":
		result = d.listPrompts()
	case "prompts/get":
		result, err = d.getPrompt(req.Params)
	case "resources/list":
		result = MCPListResourcesResult{Resources: d.catalog.Resources()}
	case "resources/templates/list":
		result = map[string]any{"resourceTemplates": []any{}}
	case "resources/read":
		result, err = d.readResource(req.Params)
	default:
		return d.errorResponse(req, &JSONRPCError{Code: JSONRPCMethodNotFound, Message: "method not found"})
	}

	if err != nil {
		rpcErr := errorFor(err)
		if rpcErr.Code == JSONRPCInternalError {
			d.logger.Error("MCP request failed", "method", req.Method, "error", err)
		}
		return d.errorResponse(req, rpcErr)
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (d *Dispatcher) handleNotification(req *JSONRPCRequest) {
	switch req.Method {
	case "exit":
		d.exit()
	case "notifications/initialized", "notifications/cancelled":
		d.logger.Debug("accepted MCP notification", "method", req.Method)
	default:
		d.logger.Warn("received notification for non-notification method", "method", req.Method)
	}
}

func (d *Dispatcher) exit() {
	d.doneOnce.Do(func() {
		d.logger.Info("exit requested")
		close(d.done)
	})
}

func (d *Dispatcher) errorResponse(req *JSONRPCRequest, rpcErr *JSONRPCError) *JSONRPCResponse {
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: rpcErr}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), nullID) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierr.Validation("invalid params", map[string]string{"params": err.Error()})
	}
	return nil
}

// NegotiateVersion returns requested when supported, else the latest version.
func NegotiateVersion(requested string) string {
	if supportedProtocolVersions[requested] {
		return requested
	}
	return latestProtocolVersion
}

func (d *Dispatcher) initialize(raw json.RawMessage) (any, error) {
	var params InitializeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	version := NegotiateVersion(params.ProtocolVersion)
	d.logger.Info("MCP client initialized",
		"client_name", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_version", params.ProtocolVersion,
		"protocol_version", version,
	)
	return InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"prompts":   map[string]any{"listChanged": false},
			"resources": map[string]any{"subscribe": false, "listChanged": false},
		},
		ServerInfo:   d.info,
		Instructions: d.instructions,
	}, nil
}

func (d *Dispatcher) listTools() MCPListToolsResult {
	defs := d.tools.List()
	result := MCPListToolsResult{Tools: make([]MCPToolInfo, len(defs))}
	for i, def := range defs {
		annotations := def.Annotations
		result.Tools[i] = MCPToolInfo{
			Name:        def.Name,
			Title:       annotations.Title,
			Description: def.Description,
			InputSchema: def.InputSchema,
			Annotations: &annotations,
		}
	}
	return result
}

func (d *Dispatcher) callTool(ctx context.Context, raw json.RawMessage) (any, error) {
	var params MCPCallToolParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, apierr.Validation("tool name is required", map[string]string{"name": "required"})
	}

	def, ok := d.tools.Get(params.Name)
	if !ok {
		return nil, apierr.NotFound("tool", params.Name)
	}

	requestID := uuid.New().String()
	d.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
		"read_only", def.Annotations.ReadOnlyHint,
	)

	out, err := d.tools.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		d.logger.Warn("tool execution failed",
			"tool_name", params.Name,
			"request_id", requestID,
			"kind", apierr.KindOf(err).String(),
			"error", err,
		)
		return nil, err
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, apierr.Internal("encode tool result", err)
	}
	result := MCPCallToolResult{Content: []MCPContent{{Type: "text", Text: string(text)}}}
	if _, isObject := out.(map[string]any); isObject {
		result.StructuredContent = out
	}

	d.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
	)
	return result, nil
}

func (d *Dispatcher) listPrompts() MCPListPromptsResult {
	prompts := d.catalog.Prompts()
	result := MCPListPromptsResult{Prompts: make([]MCPPromptInfo, len(prompts))}
	for i, p := range prompts {
		result.Prompts[i] = MCPPromptInfo{Name: p.Name, Description: p.Description, Arguments: p.Arguments}
	}
	return result
}

func (d *Dispatcher) getPrompt(raw json.RawMessage) (any, error) {
	var params MCPGetPromptParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, apierr.Validation("prompt name is required", map[string]string{"name": "required"})
	}
	return d.catalog.Render(params.Name, params.Arguments)
}

func (d *Dispatcher) readResource(raw json.RawMessage) (any, error) {
	var params MCPReadResourceParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, apierr.Validation("resource uri is required", map[string]string{"uri": "required"})
	}
	contents, err := d.catalog.Read(params.URI)
	if err != nil {
		return nil, err
	}
	return MCPReadResourceResult{Contents: contents}, nil
}
