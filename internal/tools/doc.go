// Package tools holds the registry of MCP tools.
//
// A Definition pairs a name, description and input Schema with a Handler.
// The Registry is built once from the full set of definitions and is
// read-only afterwards. Registry.Call looks the tool up, decodes and validates
// the arguments, and only then invokes the handler, so unknown tools and
// malformed arguments never reach the platform.
package tools
