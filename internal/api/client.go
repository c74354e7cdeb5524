// Package api is the only path from mealtrack to the remote backend.
//
// The Client resolves the target URL, attaches the bearer credential, sets the
// JSON content type and separates "could not reach the host" from "the host
// answered with an error status". It makes exactly one attempt per call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rcliao/mealtrack/internal/metrics"
)

// ForwarderPrefix is the path under which the boundary forwarder relays requests.
const ForwarderPrefix = "/api/proxy"

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource interface {
	CurrentToken() string
}

// Options selects how relative endpoints are resolved.
type Options struct {
	// BaseURL is the real backend, used for relative endpoints when Direct is set.
	BaseURL string
	// ForwarderURL is the forwarder's origin, used for relative endpoints otherwise.
	ForwarderURL string
	Direct       bool
}

// Client sends requests to the backend.
type Client struct {
	opts    Options
	tokens  TokenSource
	http    *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request outcomes on r.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// New creates a Client. tokens may be nil, in which case no credential is ever attached.
// The default HTTP client has no timeout; callers bound requests with their context.
func New(opts Options, tokens TokenSource, options ...Option) *Client {
	c := &Client{
		opts:    opts,
		tokens:  tokens,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type requestConfig struct {
	requireAuth bool
	header      http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*requestConfig)

// WithoutAuth sends the request without the Authorization header.
func WithoutAuth() RequestOption {
	return func(rc *requestConfig) { rc.requireAuth = false }
}

// WithHeader adds a caller header. Authorization is always decided by the client.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.header.Set(key, value) }
}

var methodsWithBody = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// ResolveURL applies the first matching rule: absolute URLs are used as-is, relative
// endpoints go to BaseURL in direct mode and through the forwarder otherwise.
func (c *Client) ResolveURL(endpoint string) string {
	if isAbsoluteURL(endpoint) {
		return endpoint
	}
	if c.opts.Direct && c.opts.BaseURL != "" {
		return joinURL(c.opts.BaseURL, endpoint)
	}
	return joinURL(strings.TrimSuffix(c.opts.ForwarderURL, "/")+ForwarderPrefix, endpoint)
}

// Do sends one request. Any HTTP status is returned as a response; only failures to
// get a response at all are errors. The caller must close the response body.
//
// body may be nil, []byte, json.RawMessage, string, io.Reader, or any value to encode as JSON.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*http.Response, error) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	rc := requestConfig{requireAuth: true, header: http.Header{}}
	for _, opt := range opts {
		opt(&rc)
	}

	reader, hasBody, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	target := c.ResolveURL(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if methodsWithBody[method] || hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range rc.header {
		if k == "Authorization" {
			continue
		}
		req.Header[k] = vs
	}
	authed := false
	if rc.requireAuth && c.tokens != nil {
		if token := c.tokens.CurrentToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			authed = true
		}
	}

	c.logger.Debug("api request", "url", target, "method", method, "has_body", hasBody, "auth", authed)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.metrics.RecordDispatchFailure("canceled")
			return nil, ctxErr
		}
		c.metrics.RecordDispatchFailure(string(KindUnreachable))
		c.logger.Warn("api request failed", "url", target, "method", method, "error", err)
		return nil, &TransportError{Kind: KindUnreachable, Method: method, URL: target, Err: err}
	}
	elapsed := time.Since(start)
	c.metrics.RecordDispatch(resp.StatusCode, elapsed)
	c.logger.Debug("api response", "url", target, "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, opts...)
}

// Post sends a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, opts...)
}

// DecodeJSON decodes resp's body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func encodeBody(body any) (io.Reader, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case json.RawMessage:
		return bytes.NewReader(b), true, nil
	case []byte:
		return bytes.NewReader(b), true, nil
	case string:
		return strings.NewReader(b), true, nil
	case io.Reader:
		return b, true, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, err
		}
		return bytes.NewReader(data), true, nil
	}
}

func isAbsoluteURL(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func joinURL(base, endpoint string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return base + endpoint
}
