// Package config handles configuration loading for hcp-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file, expanded against the
// environment, then overlaid with the well-known environment variables.
// A missing file is not an error: defaults plus environment are enough to
// run.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. --config flag
//  2. Path from HCP_GATEWAY_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/hcp-gateway/config.yaml (or ~/.config/...)
//
// Files ending in .toml are decoded as TOML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	hcp:
//	  client_secret: "${HCP_CLIENT_SECRET}"
//
// # Environment Overrides
//
// These win over the file:
//
//	HCP_CLIENT_ID, HCP_CLIENT_SECRET, HCP_AUDIENCE, HCP_AUTH_URL,
//	HCP_API_BASE_URL, MCP_SERVER_HOST, MCP_SERVER_PORT
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  safety_margin: "60s"
//	  failure_cooldown: "5s"
//	downstream:
//	  timeout: "30s"
//	server:
//	  session_ttl: "30m"
//
// # Example Configuration
//
//	hcp:
//	  client_id: "${HCP_CLIENT_ID}"
//	  client_secret: "${HCP_CLIENT_SECRET}"
//	  page_size: 50
//	  rate_limit: 10
//
//	downstream:
//	  max_attempts: 3
//	  initial_backoff: "200ms"
//	  max_backoff: "5s"
//
//	server:
//	  host: "127.0.0.1"
//	  port: 8000
//	  tokens:
//	    ci: "${MCP_CI_TOKEN}"
//	  jwt_secret: "${HCP_GATEWAY_JWT_SECRET}"  # at least 32 bytes
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
// Missing HCP credentials are not a validation failure; the gateway starts
// and tool calls report an authentication error until they are supplied.
package config
