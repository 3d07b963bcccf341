// Package credential manages the bearer token used for every downstream call.
//
// A Manager owns exactly one cached Credential and refreshes it through a
// client-credentials exchange when it is absent or within the safety margin of
// expiry. Refreshes are single-flight: concurrent callers share one exchange.
// A failed exchange is remembered for a short cooldown so a misconfigured
// gateway does not hammer the auth endpoint, and SetClientCredentials clears it.
package credential
