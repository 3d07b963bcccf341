// ABOUTME: Configuration loading and parsing for hcp-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and env overrides

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Platform defaults.
const (
	DefaultAuthURL    = "https://auth.idp.hashicorp.com/oauth/token"
	DefaultAudience   = "https://api.hashicorp.cloud"
	DefaultAPIBaseURL = "https://api.cloud.hashicorp.com"
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8000
	DefaultAttempts   = 3
)

// Config represents the complete hcp-gateway configuration
type Config struct {
	HCP        HCPConfig        `yaml:"hcp" toml:"hcp"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Downstream DownstreamConfig `yaml:"downstream" toml:"downstream"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// HCPConfig holds platform credentials and endpoints. Missing credentials
// are allowed; tool calls fail with an authentication error until they are set.
type HCPConfig struct {
	ClientID       string  `yaml:"client_id" toml:"client_id"`
	ClientSecret   string  `yaml:"client_secret" toml:"client_secret"`
	Audience       string  `yaml:"audience" toml:"audience"`
	AuthURL        string  `yaml:"auth_url" toml:"auth_url"`
	APIBaseURL     string  `yaml:"api_base_url" toml:"api_base_url"`
	PageSize       int     `yaml:"page_size" toml:"page_size"`
	MaxPages       int     `yaml:"max_pages" toml:"max_pages"`
	BillingAccount string  `yaml:"billing_account" toml:"billing_account"`
	RateLimit      float64 `yaml:"rate_limit" toml:"rate_limit"` // requests/second, 0 disables
	RateBurst      int     `yaml:"rate_burst" toml:"rate_burst"`
}

// AuthConfig holds credential refresh timing
type AuthConfig struct {
	SafetyMargin    time.Duration `yaml:"-" toml:"-"`
	FailureCooldown time.Duration `yaml:"-" toml:"-"`
	ExchangeTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	SafetyMarginRaw    string `yaml:"safety_margin" toml:"safety_margin"`
	FailureCooldownRaw string `yaml:"failure_cooldown" toml:"failure_cooldown"`
	ExchangeTimeoutRaw string `yaml:"exchange_timeout" toml:"exchange_timeout"`
}

// DownstreamConfig holds request executor timing and retry policy
type DownstreamConfig struct {
	Timeout        time.Duration `yaml:"-" toml:"-"`
	InitialBackoff time.Duration `yaml:"-" toml:"-"`
	MaxBackoff     time.Duration `yaml:"-" toml:"-"`
	MaxAttempts    int           `yaml:"max_attempts" toml:"max_attempts"`

	TimeoutRaw        string `yaml:"timeout" toml:"timeout"`
	InitialBackoffRaw string `yaml:"initial_backoff" toml:"initial_backoff"`
	MaxBackoffRaw     string `yaml:"max_backoff" toml:"max_backoff"`
}

// ServerConfig holds the HTTP transport configuration
type ServerConfig struct {
	Host        string        `yaml:"host" toml:"host"`
	Port        int           `yaml:"port" toml:"port"`
	SessionTTL  time.Duration `yaml:"-" toml:"-"`
	MaxSessions int           `yaml:"max_sessions" toml:"max_sessions"`
	// Tokens maps a caller label to the bearer token it presents on /mcp.
	// Empty disables inbound authentication.
	Tokens map[string]string `yaml:"tokens" toml:"tokens"`
	// JWTSecret enables HS256 bearer JWTs minted by the token subcommand.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`

	SessionTTLRaw string `yaml:"session_ttl" toml:"session_ttl"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		HCP: HCPConfig{
			Audience:   DefaultAudience,
			AuthURL:    DefaultAuthURL,
			APIBaseURL: DefaultAPIBaseURL,
		},
		Downstream: DownstreamConfig{
			MaxAttempts: DefaultAttempts,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// HCP_* and MCP_SERVER_* overrides are applied. A missing file yields the
// defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults and environment only.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := decode(path, expandEnvVars(string(data)), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path, data string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(data, cfg)
		return err
	}
	return yaml.Unmarshal([]byte(data), cfg)
}

// DefaultPath resolves the config file location.
// Priority: HCP_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/hcp-gateway/config.yaml > ~/.config/hcp-gateway/config.yaml
func DefaultPath() string {
	if path := os.Getenv("HCP_GATEWAY_CONFIG"); path != "" {
		return path
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "hcp-gateway", "config.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv overlays the well-known environment variables. Set-but-empty
// values are ignored.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"HCP_CLIENT_ID":     &cfg.HCP.ClientID,
		"HCP_CLIENT_SECRET": &cfg.HCP.ClientSecret,
		"HCP_AUDIENCE":      &cfg.HCP.Audience,
		"HCP_AUTH_URL":      &cfg.HCP.AuthURL,
		"HCP_API_BASE_URL":  &cfg.HCP.APIBaseURL,
		"MCP_SERVER_HOST":   &cfg.Server.Host,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MCP_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MCP_SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// Validate checks that all configured values are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if err := validateURL("hcp.auth_url", c.HCP.AuthURL); err != nil {
		return err
	}
	if err := validateURL("hcp.api_base_url", c.HCP.APIBaseURL); err != nil {
		return err
	}
	if c.HCP.PageSize < 0 {
		return fmt.Errorf("hcp.page_size must not be negative")
	}
	if c.HCP.MaxPages < 0 {
		return fmt.Errorf("hcp.max_pages must not be negative")
	}
	if c.HCP.RateLimit < 0 {
		return fmt.Errorf("hcp.rate_limit must not be negative")
	}
	if c.Downstream.MaxAttempts < 0 {
		return fmt.Errorf("downstream.max_attempts must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must not be negative")
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < 32 {
		return fmt.Errorf("server.jwt_secret must be at least 32 bytes")
	}
	for label, token := range c.Server.Tokens {
		if token == "" {
			return fmt.Errorf("server.tokens.%s is empty", label)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme", field)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.safety_margin", cfg.Auth.SafetyMarginRaw, &cfg.Auth.SafetyMargin},
		{"auth.failure_cooldown", cfg.Auth.FailureCooldownRaw, &cfg.Auth.FailureCooldown},
		{"auth.exchange_timeout", cfg.Auth.ExchangeTimeoutRaw, &cfg.Auth.ExchangeTimeout},
		{"downstream.timeout", cfg.Downstream.TimeoutRaw, &cfg.Downstream.Timeout},
		{"downstream.initial_backoff", cfg.Downstream.InitialBackoffRaw, &cfg.Downstream.InitialBackoff},
		{"downstream.max_backoff", cfg.Downstream.MaxBackoffRaw, &cfg.Downstream.MaxBackoff},
		{"server.session_ttl", cfg.Server.SessionTTLRaw, &cfg.Server.SessionTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}
	return nil
}
