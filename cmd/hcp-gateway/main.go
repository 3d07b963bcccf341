// ABOUTME: Entry point for hcp-gateway, an MCP server for the HashiCorp Cloud Platform APIs
// ABOUTME: Subcommands serve (HTTP), stdio, tools, health and token

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/hcp-gateway/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _
 | |__   ___ _ __         __ _  __ _| |_ _____      ____ _ _   _
 | '_ \ / __| '_ \ _____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
 | | | | (__| |_) |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 |_| |_|\___| .__/       \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
            |_|          |___/                             |___/
`

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hcp-gateway <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve     Start the MCP server over HTTP")
	fmt.Fprintln(os.Stderr, "  stdio     Serve MCP over stdin/stdout")
	fmt.Fprintln(os.Stderr, "  tools     List the available tools")
	fmt.Fprintln(os.Stderr, "  health    Check a running server")
	fmt.Fprintln(os.Stderr, "  token     Mint a bearer JWT for the HTTP endpoint")
	fmt.Fprintln(os.Stderr, "  version   Print the version")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "serve and stdio reload HCP credentials and bearer tokens on SIGHUP.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, args)
	case "stdio":
		err = runStdio(ctx, args)
	case "tools":
		err = runTools(args)
	case "health":
		err = runHealth(ctx, args)
	case "token":
		err = runToken(args)
	case "version", "--version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every subcommand that loads configuration.
type commonFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configPath, "config", "c", "", "config file (default: $HCP_GATEWAY_CONFIG or $XDG_CONFIG_HOME/hcp-gateway/config.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	fs.StringVar(&c.logFormat, "log-format", "", "override logging.format (text, json)")
}

// load resolves the config path and applies flag overrides.
func (c *commonFlags) load() (*config.Config, string, error) {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	return cfg, path, nil
}
