// ABOUTME: Tests for credential and secret redaction helpers.
// ABOUTME: Covers nested JSON, raw bodies, headers and query strings.

package redact

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRedactsNestedKeys(t *testing.T) {
	in := map[string]any{
		"client_secret": "s3cr3t",
		"name":          "prod",
		"nested": map[string]any{
			"access_token": "abc",
			"items": []any{
				map[string]any{"password": "x", "id": "1"},
			},
		},
	}

	out := Map(in)

	assert.Equal(t, Placeholder, out["client_secret"])
	assert.Equal(t, "prod", out["name"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, Placeholder, nested["access_token"])
	item := nested["items"].([]any)[0].(map[string]any)
	assert.Equal(t, Placeholder, item["password"])
	assert.Equal(t, "1", item["id"])

	// source untouched
	assert.Equal(t, "s3cr3t", in["client_secret"])
}

func TestTraceabilityKeysSurvive(t *testing.T) {
	out := Map(map[string]any{
		"next_page_token": "cursor-2",
		"secret_name":     "db_password",
		"token_url":       "https://auth.example/oauth/token",
	})

	assert.Equal(t, "cursor-2", out["next_page_token"])
	assert.Equal(t, "db_password", out["secret_name"])
	assert.Equal(t, "https://auth.example/oauth/token", out["token_url"])
}

func TestJSONRedactsSecretValues(t *testing.T) {
	out := JSON([]byte(`{"secret":{"name":"db","static_version":{"value":"hunter2","version":1}}}`))

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Placeholder, m["secret"])

	out = JSON([]byte(`{"static_version":{"value":"hunter2","version":1}}`))
	sv := out.(map[string]any)["static_version"].(map[string]any)
	assert.Equal(t, Placeholder, sv["value"])
	assert.Equal(t, float64(1), sv["version"])
}

func TestJSONNonJSONBody(t *testing.T) {
	assert.Nil(t, JSON(nil))
	assert.Equal(t, "upstream said no", JSON([]byte("upstream said no")))
	assert.Equal(t, "Authorization: Bearer [REDACTED]", JSON([]byte("Authorization: Bearer abc.def")))
}

func TestHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("Content-Type", "application/json")

	out := Header(h)

	assert.Equal(t, Placeholder, out["Authorization"])
	assert.Equal(t, "application/json", out["Content-Type"])
}

func TestQuery(t *testing.T) {
	q := url.Values{"pagination.page_size": {"50"}, "api_key": {"k"}}

	encoded := Query(q)

	assert.Contains(t, encoded, "pagination.page_size=50")
	assert.Contains(t, encoded, "api_key=%5BREDACTED%5D")
	assert.Equal(t, "", Query(nil))
}
