// Package session stores MCP sessions for the Streamable HTTP transport.
//
// A session is created by initialize and addressed by the Mcp-Session-Id
// header afterwards. Sessions expire after a period of inactivity; when the
// store is full the least recently used one is evicted.
package session
