// Package auth verifies callers of the MCP HTTP endpoint.
//
// Two inbound methods are supported by the HTTP transport:
//
//   - Static bearer tokens listed under server.tokens
//   - JWTs signed with HS256 using server.jwt_secret, issued by "hcp-gateway"
//
// This package covers the second. Tokens carry the caller's name in "sub" and
// must carry "exp":
//
//	verifier, err := auth.NewJWTVerifier([]byte(secret), nil)
//	token, err := verifier.Generate("ci-pipeline", 24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// The hcp-gateway token subcommand mints tokens from the configured secret.
//
// Outbound platform credentials are handled by the credential package.
package auth
