// Package hcp declares the HashiCorp Cloud Platform operations exposed as
// MCP tools, along with the prompts and schema resources that accompany them.
//
// Most tools are rows in a table of Operation values: a name, parameters, an
// HTTP method and path, and for list endpoints the response field holding
// the items. Operation.Tool turns a row into a tools.Definition whose handler
// expands path parameters, builds the query and body, and accumulates pages
// through the paginate package. A handful of composite tools (name finders,
// audit log search, billing summary) combine several calls.
package hcp
