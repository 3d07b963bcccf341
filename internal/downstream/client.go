// ABOUTME: Authenticated request executor for the platform's REST API.
// ABOUTME: Classifies every outcome into success, empty success or a taxonomy error.

package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/2389/hcp-gateway/internal/apierr"
	"github.com/2389/hcp-gateway/internal/credential"
	"github.com/2389/hcp-gateway/internal/redact"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultBackoff          = 200 * time.Millisecond
	DefaultMaxResponseBytes = 10 << 20 // 10 MiB
	DefaultMaxBackoff       = 5 * time.Second
	DefaultUserAgent        = "hcp-gateway"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies bearer credentials. *credential.Manager implements it.
type TokenSource interface {
	Ensure(ctx context.Context) (*credential.Credential, error)
	Invalidate(token string)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	Credentials TokenSource
	HTTPClient  HTTPDoer
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	// MaxAttempts applies to idempotent requests that fail transiently.
	// Zero or one means no retry.
	MaxAttempts      int
	Backoff          time.Duration
	MaxBackoff       time.Duration
	RateLimit        float64
	RateBurst        int
	UserAgent        string
	MaxResponseBytes int64
	Logger           *slog.Logger
}

// Result is a successful downstream answer. Empty is set for 204 and for any
// 2xx without a body; otherwise Body holds valid JSON.
type Result struct {
	Status int
	Empty  bool
	Body   json.RawMessage
}

// Decode unmarshals the body into v. An empty result leaves v untouched.
func (r Result) Decode(v any) error {
	if r.Empty {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apierr.Decode("decode downstream response", err)
	}
	return nil
}

// Value returns the body as a generic JSON value, or nil when empty.
func (r Result) Value() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Client issues authenticated JSON requests against one base URL.
type Client struct {
	baseURL     string
	creds       TokenSource
	http        HTTPDoer
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
	limiter     *rate.Limiter
	userAgent   string
	maxBody     int64
	logger      *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		creds:       cfg.Credentials,
		http:        cfg.HTTPClient,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		maxBackoff:  cfg.MaxBackoff,
		userAgent:   cfg.UserAgent,
		maxBody:     cfg.MaxResponseBytes,
		logger:      cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = DefaultMaxBackoff
	}
	c.maxBackoff = max(c.maxBackoff, c.backoff)
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxResponseBytes
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Call performs method against path (relative to the base URL, already
// escaped) with optional query parameters and JSON body.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body any) (Result, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return Result{}, apierr.Internal("encode request body", err)
		}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 1
	if idempotent(method) {
		attempts = c.maxAttempts
	}

	reauthed := false
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return Result{}, lastErr
			}
		}

		res, token, err := c.do(ctx, method, target, payload)
		if err == nil {
			c.logger.Debug("downstream call",
				"method", method,
				"path", path,
				"query", redact.Query(query),
				"status", res.Status,
				"attempt", attempt,
			)
			return res, nil
		}

		// A rejected token is dropped and the request replayed once with a
		// fresh credential.
		if apierr.Status(err) == http.StatusUnauthorized && apierr.Is(err, apierr.KindUpstream) && !reauthed && token != "" {
			reauthed = true
			c.creds.Invalidate(token)
			attempt--
			continue
		}

		lastErr = err
		c.logger.Debug("downstream call failed",
			"method", method,
			"path", path,
			"query", redact.Query(query),
			"kind", apierr.KindOf(err).String(),
			"status", apierr.Status(err),
			"attempt", attempt,
			"request_body", redact.JSON(payload),
		)
		if !apierr.Retryable(err) {
			return Result{}, err
		}
	}
	return Result{}, lastErr
}

// do runs a single attempt and returns the token it used.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) (Result, string, error) {
	if c.creds == nil {
		return Result{}, "", apierr.Authentication("no credential source configured", nil)
	}
	cred, err := c.creds.Ensure(ctx)
	if err != nil {
		return Result{}, "", err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, cred.Token, apierr.Transient("rate limit wait aborted", 0, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return Result{}, cred.Token, apierr.Internal("build downstream request", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return Result{}, cred.Token, apierr.Transient("downstream request timed out", 0, context.DeadlineExceeded)
		}
		return Result{}, cred.Token, apierr.Transient("downstream request failed", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return Result{}, cred.Token, apierr.Transient("read downstream response", resp.StatusCode, err)
	}
	if int64(len(raw)) > c.maxBody {
		return Result{}, cred.Token, apierr.Decode(fmt.Sprintf("downstream response exceeds %d bytes", c.maxBody), nil)
	}

	res, err := classify(resp.StatusCode, raw)
	return res, cred.Token, err
}

func classify(status int, raw []byte) (Result, error) {
	switch {
	case status == http.StatusNoContent:
		return Result{Status: status, Empty: true}, nil
	case status >= 200 && status < 300:
		if len(bytes.TrimSpace(raw)) == 0 {
			return Result{Status: status, Empty: true}, nil
		}
		if !json.Valid(raw) {
			return Result{}, apierr.Decode(fmt.Sprintf("downstream returned %d with a non-JSON body", status), nil)
		}
		return Result{Status: status, Body: json.RawMessage(raw)}, nil
	case status >= 400 && status < 500:
		return Result{}, apierr.Upstream(status, redact.JSON(raw))
	case status >= 500:
		return Result{}, apierr.Transient(fmt.Sprintf("downstream returned %d", status), status, nil)
	default:
		return Result{}, apierr.Upstream(status, redact.JSON(raw))
	}
}

func (c *Client) sleep(ctx context.Context, retry int) error {
	delay := c.backoff << (retry - 1)
	if delay > c.maxBackoff || delay <= 0 {
		delay = c.maxBackoff
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func idempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
