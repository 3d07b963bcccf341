// ABOUTME: Bearer credential value and the claims parsed out of it.
// ABOUTME: A credential is usable only while now is before expiry minus the safety margin.

package credential

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DefaultTTL applies when the token endpoint states no lifetime and the token
// carries no exp claim.
const DefaultTTL = time.Hour

// Credential is an immutable bearer token. Refreshing replaces the value held
// by the Manager; it is never modified in place.
type Credential struct {
	Token      string
	Audience   string
	ObtainedAt time.Time
	ExpiresAt  time.Time
}

// Usable reports whether c may start a downstream call at now.
func (c *Credential) Usable(now time.Time, margin time.Duration) bool {
	if c == nil || c.Token == "" {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-margin))
}

// newCredential builds a Credential from a token endpoint answer. The expiry
// is the stated lifetime counted from obtainedAt, tightened by the JWT exp
// claim when the token is a JWT.
func newCredential(tok *oauth2.Token, audience string, obtainedAt time.Time) *Credential {
	cred := &Credential{
		Token:      tok.AccessToken,
		Audience:   audience,
		ObtainedAt: obtainedAt,
		ExpiresAt:  obtainedAt.Add(lifetime(tok)),
	}

	if exp, aud, ok := jwtClaims(tok.AccessToken); ok {
		if !exp.IsZero() && exp.Before(cred.ExpiresAt) {
			cred.ExpiresAt = exp
		}
		if cred.Audience == "" && aud != "" {
			cred.Audience = aud
		}
	}
	return cred
}

func lifetime(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		if d := time.Until(tok.Expiry); d > 0 {
			return d
		}
	}
	return DefaultTTL
}

// jwtClaims reads exp and the first aud of a JWT without verifying the
// signature. Opaque tokens return ok=false.
func jwtClaims(token string) (time.Time, string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, "", false
	}

	var exp time.Time
	if t, err := claims.GetExpirationTime(); err == nil && t != nil {
		exp = t.Time
	}
	var aud string
	if auds, err := claims.GetAudience(); err == nil && len(auds) > 0 {
		aud = auds[0]
	}
	return exp, aud, true
}
