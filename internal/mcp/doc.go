// Package mcp implements the Model Context Protocol server for the platform tools.
//
// # Overview
//
// The Dispatcher decodes JSON-RPC 2.0 frames and routes them to the tool
// registry and the prompt/resource catalog. It is transport independent;
// two transports sit on top of it:
//
//   - StdioServer - newline-delimited frames on stdin/stdout
//   - HTTPServer - Streamable HTTP on POST/DELETE /mcp plus GET /health
//
// # Methods
//
//   - initialize, notifications/initialized, ping, shutdown, exit
//   - tools/list, tools/call
//   - prompts/list, prompts/get
//   - resources/list, resources/read, resources/templates/list
//
// The response id is always the request id, byte for byte, including on
// errors. Notifications never produce a response.
//
// # Errors
//
// Failures are classified by apierr.Kind and mapped onto JSON-RPC codes:
//
//	not found        -32601
//	validation       -32602  data.fields names each bad parameter
//	internal         -32603  generic message; detail is logged
//	authentication   -32001
//	upstream         -32002  data.status and the redacted data.body
//	transient        -32003  data.retryable is true
//	pagination loop  -32004
//	decode           -32005
//
// # Sessions
//
// Over HTTP, initialize creates a session returned in the Mcp-Session-Id
// header. Later requests must carry it. When inbound bearer tokens are
// configured, each session is bound to the token that created it:
//
//	Authorization: Bearer <token>
//
// shutdown and exit over HTTP end the caller's session, not the process.
//
// # Usage
//
//	dispatcher, err := mcp.NewDispatcher(mcp.Config{Tools: registry, Catalog: cat})
//	srv, err := mcp.NewHTTPServer(mcp.HTTPConfig{Dispatcher: dispatcher, Credentials: creds})
//	srv.RegisterRoutes(mux)
package mcp
