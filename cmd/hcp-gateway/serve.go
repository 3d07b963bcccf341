// ABOUTME: The serve and stdio subcommands that run the MCP server.
// ABOUTME: Builds the credential manager, executor, tool registry and catalog shared by both transports.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/hcp-gateway/internal/auth"
	"github.com/2389/hcp-gateway/internal/config"
	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/downstream"
	"github.com/2389/hcp-gateway/internal/hcp"
	"github.com/2389/hcp-gateway/internal/mcp"
	"github.com/2389/hcp-gateway/internal/session"
)

const instructions = "Tools for the HashiCorp Cloud Platform: organizations, projects, IAM, " +
	"Vault Secrets, billing and audit logs. Use the find_* tools to resolve names to IDs " +
	"before calling tools that take an ID. Confirm with the user before any delete."

const shutdownTimeout = 10 * time.Second

// gateway holds the components shared by both transports.
type gateway struct {
	credentials *credential.Manager
	dispatcher  *mcp.Dispatcher
}

func newGateway(cfg *config.Config, logger *slog.Logger) (*gateway, error) {
	creds := credential.NewManager(credential.Config{
		ClientID:        cfg.HCP.ClientID,
		ClientSecret:    cfg.HCP.ClientSecret,
		Audience:        cfg.HCP.Audience,
		TokenURL:        cfg.HCP.AuthURL,
		SafetyMargin:    cfg.Auth.SafetyMargin,
		FailureCooldown: cfg.Auth.FailureCooldown,
		ExchangeTimeout: cfg.Auth.ExchangeTimeout,
		Logger:          logger.With("component", "credential"),
	})

	client := downstream.NewClient(downstream.Config{
		BaseURL:     cfg.HCP.APIBaseURL,
		Credentials: creds,
		Timeout:     cfg.Downstream.Timeout,
		MaxAttempts: cfg.Downstream.MaxAttempts,
		Backoff:     cfg.Downstream.InitialBackoff,
		MaxBackoff:  cfg.Downstream.MaxBackoff,
		RateLimit:   cfg.HCP.RateLimit,
		RateBurst:   cfg.HCP.RateBurst,
		UserAgent:   downstream.DefaultUserAgent + "/" + version,
		Logger:      logger.With("component", "downstream"),
	})

	registry, err := hcp.NewRegistry(client, hcp.Options{
		PageSize:       cfg.HCP.PageSize,
		MaxPages:       cfg.HCP.MaxPages,
		BillingAccount: cfg.HCP.BillingAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}

	cat, err := hcp.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	dispatcher, err := mcp.NewDispatcher(mcp.Config{
		Tools:         registry,
		Catalog:       cat,
		Logger:        logger.With("component", "mcp"),
		ServerName:    "hcp-gateway",
		ServerVersion: version,
		Instructions:  instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	if !creds.Status().Configured {
		logger.Warn("HCP client credentials are not set; tool calls will fail until HCP_CLIENT_ID and HCP_CLIENT_SECRET are provided")
	}

	return &gateway{credentials: creds, dispatcher: dispatcher}, nil
}

func runServe(ctx context.Context, args []string) error {
	var common commonFlags
	var host string
	var port int
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVar(&host, "host", "", "override server.host")
	fs.IntVarP(&port, "port", "p", 0, "override server.port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, configPath, err := common.load()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := setupLogger(cfg.Logging, os.Stdout)

	gw, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	ttl := cfg.Server.SessionTTL
	if ttl == 0 {
		ttl = mcp.DefaultSessionTTL
	}
	maxSessions := cfg.Server.MaxSessions
	if maxSessions == 0 {
		maxSessions = mcp.DefaultMaxSessions
	}
	sessions := session.New(ttl, maxSessions, nil)
	defer sessions.Close()

	tokens := mcp.NewTokenStore(cfg.Server.Tokens)
	var verifier auth.TokenVerifier
	if cfg.Server.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Server.JWTSecret), nil)
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		verifier = v
	}
	srv, err := mcp.NewHTTPServer(mcp.HTTPConfig{
		Dispatcher:  gw.dispatcher,
		Sessions:    sessions,
		Tokens:      tokens,
		Verifier:    verifier,
		Credentials: gw.credentials,
		Logger:      logger.With("component", "http"),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	stopReload := watchHangup(ctx, &reloader{
		path:        configPath,
		credentials: gw.credentials,
		tokens:      tokens,
		logger:      logger.With("component", "reload"),
	})
	defer stopReload()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("MCP:       http://%s/mcp\n", cfg.Server.Addr())
	green.Print("    ▶ ")
	fmt.Printf("Platform:  %s\n", cfg.HCP.APIBaseURL)
	green.Print("    ▶ ")
	fmt.Print("Auth:      ")
	switch {
	case tokens.TokenCount() > 0 && verifier != nil:
		fmt.Printf("%d bearer token(s) + JWT\n", tokens.TokenCount())
	case tokens.TokenCount() > 0:
		fmt.Printf("%d bearer token(s)\n", tokens.TokenCount())
	case verifier != nil:
		fmt.Println("JWT")
	default:
		yellow.Println("none (local use only)")
	}
	fmt.Println()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info("starting hcp-gateway",
		"config", configPath,
		"addr", cfg.Server.Addr(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// runStdio serves MCP over stdin/stdout. Logs go to stderr. Returning nil
// after exit or EOF makes the process exit 0.
func runStdio(ctx context.Context, args []string) error {
	var common commonFlags
	fs := pflag.NewFlagSet("stdio", pflag.ContinueOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, configPath, err := common.load()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	gw, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	stopReload := watchHangup(ctx, &reloader{
		path:        configPath,
		credentials: gw.credentials,
		logger:      logger.With("component", "reload"),
	})
	defer stopReload()

	logger.Info("serving MCP on stdio", "config", configPath, "version", version)
	err = mcp.NewStdioServer(gw.dispatcher, os.Stdin, os.Stdout, logger).Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
