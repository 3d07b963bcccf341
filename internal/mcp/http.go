// ABOUTME: MCP Streamable HTTP transport with session management on top of the dispatcher.
// ABOUTME: Serves POST/DELETE /mcp and a /health endpoint reporting credential status.

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/hcp-gateway/internal/auth"
	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/session"
)

// Default session limits.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1024
)

// StatusReporter reports the credential state for /health.
type StatusReporter interface {
	Status() credential.Status
}

// HTTPConfig holds configuration for the HTTP transport.
type HTTPConfig struct {
	Dispatcher  *Dispatcher
	Sessions    *session.Store
	Tokens      *TokenStore
	Verifier    auth.TokenVerifier
	Credentials StatusReporter
	Logger      *slog.Logger
}

// HTTPServer implements MCP-compatible HTTP endpoints.
type HTTPServer struct {
	dispatcher  *Dispatcher
	sessions    *session.Store
	tokens      *TokenStore
	verifier    auth.TokenVerifier
	credentials StatusReporter
	logger      *slog.Logger
}

// NewHTTPServer creates an HTTP transport. A session store with default
// limits is created when none is supplied.
func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.New(DefaultSessionTTL, DefaultMaxSessions, nil)
	}
	return &HTTPServer{
		dispatcher:  cfg.Dispatcher,
		sessions:    sessions,
		tokens:      cfg.Tokens,
		verifier:    cfg.Verifier,
		credentials: cfg.Credentials,
		logger:      logger,
	}, nil
}

// RegisterRoutes registers the MCP and health endpoints on mux.
func (s *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *HTTPServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		// No server-initiated SSE streams.
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// authRequired reports whether inbound authentication is configured.
func (s *HTTPServer) authRequired() bool {
	return s.tokens.TokenCount() > 0 || s.verifier != nil
}

// authenticate returns the caller's token, or false when inbound auth is on
// and the request carries neither a listed token nor a valid JWT.
func (s *HTTPServer) authenticate(r *http.Request) (string, bool) {
	token := bearerToken(r)
	if !s.authRequired() {
		return token, true
	}
	if token == "" {
		return "", false
	}
	if s.tokens != nil {
		if label, ok := s.tokens.Lookup(token); ok {
			s.logger.Debug("authenticated MCP caller", "caller", label)
			return token, true
		}
	}
	if s.verifier != nil {
		subject, err := s.verifier.Verify(token)
		if err == nil {
			s.logger.Debug("authenticated MCP caller", "caller", subject)
			return token, true
		}
		s.logger.Debug("rejected bearer token", "error", err)
	}
	return "", false
}

// handleDelete terminates a session. The caller must present the credential
// the session was created with.
func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if sess.OwnerHash != ownerHash(bearerToken(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.sessions.Delete(sessionID)
	s.logger.Info("MCP session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nullID, JSONRPCParseError, "failed to read request body")
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nullID, JSONRPCInvalidRequest, "request body too large")
		return
	}

	req, rpcErr := decodeRequest(body)
	if rpcErr != nil {
		id := nullID
		if req != nil && len(req.ID) > 0 {
			id = req.ID
		}
		s.sendJSONRPCError(w, id, rpcErr.Code, rpcErr.Message)
		return
	}

	token, ok := s.authenticate(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if req.Method == "initialize" {
		s.handleInitialize(w, r, req, token)
		return
	}

	// Per the transport rules a missing header means 2025-03-26.
	if protoVersion := r.Header.Get("Mcp-Protocol-Version"); protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		// Expired or unknown; the client must re-initialize.
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if sess.OwnerHash != ownerHash(token) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Lifecycle methods end the session rather than the process.
	if req.Method == "shutdown" || req.Method == "exit" {
		s.sessions.Delete(sessionID)
		s.logger.Info("MCP session closed by client", "session_id", sessionID, "method", req.Method)
		if req.IsNotification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		s.sendJSONRPC(w, &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: struct{}{}})
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	s.sendJSONRPC(w, resp)
}

// handleInitialize runs the handshake and creates a session on success.
func (s *HTTPServer) handleInitialize(w http.ResponseWriter, r *http.Request, req *JSONRPCRequest, token string) {
	resp := s.dispatcher.Dispatch(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	result, ok := resp.Result.(InitializeResult)
	if resp.Error != nil || !ok {
		s.sendJSONRPC(w, resp)
		return
	}

	var params InitializeParams
	_ = json.Unmarshal(req.Params, &params)

	sess := s.sessions.Create(result.ProtocolVersion, params.ClientInfo.Name, params.ClientInfo.Version, ownerHash(token))
	s.logger.Info("MCP session created",
		"session_id", sess.ID,
		"protocol_version", sess.ProtocolVersion,
		"client_name", sess.ClientName,
	)

	w.Header().Set("Mcp-Session-Id", sess.ID)
	s.sendJSONRPC(w, resp)
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status      string             `json:"status"`
	Tools       int                `json:"tools"`
	Sessions    int                `json:"sessions"`
	Credentials *credential.Status `json:"credentials,omitempty"`
}

// handleHealth reports liveness with the credential state. It never
// triggers a token exchange.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	health := healthResponse{
		Status:   "ok",
		Tools:    s.dispatcher.tools.Len(),
		Sessions: s.sessions.Len(),
	}
	if s.credentials != nil {
		status := s.credentials.Status()
		health.Credentials = &status
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn("failed to encode health response", "error", err)
	}
}

func (s *HTTPServer) sendJSONRPC(w http.ResponseWriter, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

func (s *HTTPServer) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	s.sendJSONRPC(w, &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
