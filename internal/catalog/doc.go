// Package catalog serves the prompts and resources advertised over MCP.
package catalog
