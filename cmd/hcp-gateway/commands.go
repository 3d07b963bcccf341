// ABOUTME: The tools and health subcommands.
// ABOUTME: tools prints the tool table offline; health probes a running server's /health endpoint.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/hcp-gateway/internal/auth"
	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/hcp"
	"github.com/2389/hcp-gateway/internal/tools"
)

func runTools(args []string) error {
	var common commonFlags
	var asJSON bool
	fs := pflag.NewFlagSet("tools", pflag.ContinueOnError)
	common.register(fs)
	fs.BoolVar(&asJSON, "json", false, "print the tool definitions as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := common.load()
	if err != nil {
		return err
	}

	// Handlers are never invoked here, so no platform caller is needed.
	defs := hcp.Tools(nil, hcp.Options{
		PageSize:       cfg.HCP.PageSize,
		MaxPages:       cfg.HCP.MaxPages,
		BillingAccount: cfg.HCP.BillingAccount,
	})
	if asJSON {
		return writeToolsJSON(os.Stdout, defs)
	}
	return writeToolTable(os.Stdout, defs)
}

func writeToolsJSON(w io.Writer, defs []tools.Definition) error {
	type entry struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		InputSchema tools.Schema      `json:"inputSchema"`
		Annotations tools.Annotations `json:"annotations"`
	}
	out := make([]entry, len(defs))
	for i, d := range defs {
		out[i] = entry{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema, Annotations: d.Annotations}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeToolTable(w io.Writer, defs []tools.Definition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range defs {
		mode := color.GreenString("read")
		if d.Annotations.DestructiveHint {
			mode = color.RedString("destructive")
		} else if !d.Annotations.ReadOnlyHint {
			mode = color.YellowString("write")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, mode, strings.Join(d.InputSchema.Required, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	color.New(color.FgHiBlack).Fprintf(w, "\n%d tools\n", len(defs))
	return nil
}

// healthReport mirrors the /health response body.
type healthReport struct {
	Status      string             `json:"status"`
	Tools       int                `json:"tools"`
	Sessions    int                `json:"sessions"`
	Credentials *credential.Status `json:"credentials"`
}

func runHealth(ctx context.Context, args []string) error {
	var common commonFlags
	var target string
	fs := pflag.NewFlagSet("health", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVar(&target, "url", "", "health endpoint (default: http://<server.host>:<server.port>/health)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if target == "" {
		cfg, _, err := common.load()
		if err != nil {
			return err
		}
		target = fmt.Sprintf("http://%s/health", cfg.Server.Addr())
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	report, err := fetchHealth(ctx, http.DefaultClient, target)
	if err != nil {
		return err
	}
	printHealth(os.Stdout, report)
	return nil
}

func fetchHealth(ctx context.Context, client *http.Client, target string) (*healthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &report, nil
}

func printHealth(w io.Writer, report *healthReport) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprint(w, "healthy")
	fmt.Fprintf(w, "  tools=%d sessions=%d\n", report.Tools, report.Sessions)
	if report.Credentials == nil {
		return
	}
	creds := report.Credentials
	fmt.Fprint(w, "credentials: ")
	switch {
	case !creds.Configured:
		yellow.Fprintln(w, "not configured")
	case creds.LastError != "":
		yellow.Fprintf(w, "%s (%s)\n", creds.StateName, creds.LastError)
	default:
		fmt.Fprintln(w, creds.StateName)
	}
}

// runToken mints a bearer JWT for the HTTP transport from server.jwt_secret.
func runToken(args []string) error {
	var common commonFlags
	var subject string
	var ttl time.Duration
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVar(&subject, "subject", "", "caller name recorded in the token (required)")
	fs.DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if subject == "" {
		return fmt.Errorf("--subject is required")
	}

	cfg, _, err := common.load()
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is not configured")
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Server.JWTSecret), nil)
	if err != nil {
		return err
	}
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Println(token)
	return nil
}
