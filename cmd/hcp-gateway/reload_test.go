// ABOUTME: Tests for config reload on SIGHUP.
// ABOUTME: A reload must apply corrected credentials and replace inbound tokens.

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/mcp"
)

func clearHCPEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"HCP_CLIENT_ID", "HCP_CLIENT_SECRET", "HCP_AUDIENCE", "HCP_AUTH_URL",
		"HCP_API_BASE_URL", "MCP_SERVER_HOST", "MCP_SERVER_PORT",
	} {
		t.Setenv(name, "")
	}
}

func writeReloadConfig(t *testing.T, path, secret, token string) {
	t.Helper()
	content := "hcp:\n  client_id: \"id\"\n  client_secret: \"" + secret + "\"\n" +
		"server:\n  tokens:\n    ci: \"" + token + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestReloadAppliesCredentialsAndTokens(t *testing.T) {
	clearHCPEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeReloadConfig(t, path, "new-secret", "new-token")

	creds := credential.NewManager(credential.Config{})
	tokens := mcp.NewTokenStore(map[string]string{"ci": "old-token"})
	r := &reloader{
		path:        path,
		credentials: creds,
		tokens:      tokens,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	require.False(t, creds.Status().Configured)

	require.NoError(t, r.reload())

	assert.True(t, creds.Status().Configured)
	_, ok := tokens.Lookup("old-token")
	assert.False(t, ok)
	label, ok := tokens.Lookup("new-token")
	assert.True(t, ok)
	assert.Equal(t, "ci", label)
}

func TestReloadKeepsSettingsOnBadConfig(t *testing.T) {
	clearHCPEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hcp: [unterminated"), 0o600))

	tokens := mcp.NewTokenStore(map[string]string{"ci": "old-token"})
	r := &reloader{
		path:        path,
		credentials: credential.NewManager(credential.Config{}),
		tokens:      tokens,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.Error(t, r.reload())
	_, ok := tokens.Lookup("old-token")
	assert.True(t, ok)
}

func TestWatchReloadsOnSignal(t *testing.T) {
	clearHCPEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeReloadConfig(t, path, "secret", "token")

	creds := credential.NewManager(credential.Config{})
	r := &reloader{
		path:        path,
		credentials: creds,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		r.watch(ctx, signals)
		close(done)
	}()

	signals <- syscall.SIGHUP
	assert.Eventually(t, func() bool { return creds.Status().Configured }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
