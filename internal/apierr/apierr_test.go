// ABOUTME: Tests for the error taxonomy classification helpers.
// ABOUTME: Ensures each constructor round-trips through KindOf even when wrapped.

package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"authentication", Authentication("exchange failed", errors.New("401")), KindAuthentication},
		{"validation", Validation("invalid params", map[string]string{"name": "required"}), KindValidation},
		{"not found", NotFound("tool", "missing"), KindNotFound},
		{"upstream", Upstream(http.StatusNotFound, nil), KindUpstream},
		{"transient", Transient("timeout", 0, context.DeadlineExceeded), KindTransient},
		{"decode", Decode("bad json", nil), KindDecode},
		{"pagination", PaginationLoop("cursor repeated", nil), KindPaginationLoop},
		{"internal", Internal("boom", nil), KindInternal},
		{"plain error", errors.New("plain"), KindInternal},
		{"wrapped upstream", fmt.Errorf("list projects: %w", Upstream(http.StatusForbidden, nil)), KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestUpstreamCarriesStatus(t *testing.T) {
	err := Upstream(http.StatusNotFound, map[string]any{"message": "project not found"})

	assert.Equal(t, http.StatusNotFound, Status(err))
	meta := Metadata(err)
	require.NotNil(t, meta)
	assert.Equal(t, http.StatusNotFound, meta["status"])
	assert.False(t, Retryable(err))
}

func TestTransientIsRetryable(t *testing.T) {
	err := Transient("downstream timed out", 0, context.DeadlineExceeded)

	assert.True(t, Retryable(err))
	assert.Equal(t, http.StatusGatewayTimeout, Status(err))

	err = Transient("downstream unavailable", http.StatusServiceUnavailable, nil)
	assert.Equal(t, http.StatusServiceUnavailable, Status(err))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "authentication", KindAuthentication.String())
	assert.Equal(t, "pagination_loop", KindPaginationLoop.String())
	assert.Equal(t, "internal", Kind(99).String())
}

func TestIsNil(t *testing.T) {
	assert.False(t, Is(nil, KindInternal))
}
