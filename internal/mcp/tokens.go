// ABOUTME: Inbound bearer token store for the HTTP transport.
// ABOUTME: Maps configured access tokens to the label logged for their caller.

package mcp

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
)

// TokenStore manages the bearer tokens accepted on /mcp.
// An empty store disables inbound authentication.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> label
}

// NewTokenStore creates a token store seeded with label -> token pairs.
func NewTokenStore(seed map[string]string) *TokenStore {
	s := &TokenStore{tokens: make(map[string]string, len(seed))}
	for label, token := range seed {
		if token != "" {
			s.tokens[token] = label
		}
	}
	return s
}

// Add accepts token for the caller named label.
func (s *TokenStore) Add(token, label string) {
	s.mu.Lock()
	s.tokens[token] = label
	s.mu.Unlock()
}

// Lookup returns the label for token.
func (s *TokenStore) Lookup(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.tokens[token]
	return label, ok
}

// Revoke removes a token from the store.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Replace makes seed (label -> token) the accepted set, revoking tokens it
// no longer names.
func (s *TokenStore) Replace(seed map[string]string) {
	next := NewTokenStore(seed)

	s.mu.RLock()
	current := make([]string, 0, len(s.tokens))
	for token := range s.tokens {
		current = append(current, token)
	}
	s.mu.RUnlock()

	for _, token := range current {
		if _, ok := next.Lookup(token); !ok {
			s.Revoke(token)
		}
	}
	for token, label := range next.tokens {
		s.Add(token, label)
	}
}

// TokenCount returns the number of accepted tokens.
func (s *TokenStore) TokenCount() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// ownerHash derives the session binding from the caller's bearer token so the
// raw token is never stored.
func ownerHash(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
