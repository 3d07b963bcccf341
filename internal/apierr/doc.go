// Package apierr defines the closed error taxonomy shared by the credential
// manager, the request executor, the pagination accumulator and the MCP
// dispatcher.
//
// Errors are go-errors rich errors; the Kind is carried in the text code so it
// survives fmt.Errorf wrapping. The dispatcher maps each Kind onto exactly one
// JSON-RPC error code.
package apierr
