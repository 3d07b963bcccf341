// ABOUTME: SIGHUP handling that re-reads the config file without a restart.
// ABOUTME: Applies corrected HCP client credentials and the inbound token list.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/2389/hcp-gateway/internal/config"
	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/mcp"
)

// reloader applies the reloadable parts of the config. tokens is nil in
// stdio mode.
type reloader struct {
	path        string
	credentials *credential.Manager
	tokens      *mcp.TokenStore
	logger      *slog.Logger
}

func (r *reloader) reload() error {
	cfg, err := config.Load(r.path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	r.credentials.SetClientCredentials(cfg.HCP.ClientID, cfg.HCP.ClientSecret)
	if r.tokens != nil {
		r.tokens.Replace(cfg.Server.Tokens)
	}
	r.logger.Info("config reloaded",
		"config", r.path,
		"credentials_configured", r.credentials.Status().Configured,
		"tokens", r.tokens.TokenCount(),
	)
	return nil
}

// watch reloads once per signal until ctx is done. A failed reload keeps the
// previous settings.
func (r *reloader) watch(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			if err := r.reload(); err != nil {
				r.logger.Error("config reload failed", "error", err)
			}
		}
	}
}

// watchHangup starts r on SIGHUP. The returned func stops it.
func watchHangup(ctx context.Context, r *reloader) func() {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	go r.watch(ctx, signals)
	return func() {
		signal.Stop(signals)
		cancel()
	}
}
