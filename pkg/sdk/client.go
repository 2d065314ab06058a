package sdk

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
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "wfassist-sdk-go"
	// maxErrorBody caps how much of a non-JSON error reply is kept in APIError.Message.
	maxErrorBody = 4096
)

// Client talks to the wfassist HTTP API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sdk: invalid base URL %q", baseURL)
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		timeout := cfg.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := cfg.userAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		apiKey:    cfg.apiKey,
		userAgent: ua,
		http:      hc,
		logger:    cfg.logger,
	}, nil
}

// Examples lists the indexed corpus.
func (c *Client) Examples(ctx context.Context) ([]Example, error) {
	var out exampleList
	if err := c.doJSON(ctx, http.MethodGet, "/v1/examples", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Example fetches one corpus entry by id.
func (c *Client) Example(ctx context.Context, id string) (Example, error) {
	var out Example
	if err := c.doJSON(ctx, http.MethodGet, "/v1/examples/"+url.PathEscape(id), nil, &out); err != nil {
		return Example{}, err
	}
	return out, nil
}

// Search ranks corpus examples against query. k <= 0 lets the server pick its default.
func (c *Client) Search(ctx context.Context, query string, k int) (SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}
	var out SearchResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/examples/search?"+q.Encode(), nil, &out); err != nil {
		return SearchResult{}, err
	}
	return out, nil
}

// Schema returns the server's active output schema.
func (c *Client) Schema(ctx context.Context) (Schema, error) {
	var out Schema
	if err := c.doJSON(ctx, http.MethodGet, "/v1/schema", nil, &out); err != nil {
		return Schema{}, err
	}
	return out, nil
}

// Validate checks doc against the server's schema. doc is sent as-is when it
// is []byte or json.RawMessage and JSON-encoded otherwise.
func (c *Client) Validate(ctx context.Context, doc any) (Validation, error) {
	var raw json.RawMessage
	switch d := doc.(type) {
	case []byte:
		raw = d
	case json.RawMessage:
		raw = d
	default:
		b, err := json.Marshal(doc)
		if err != nil {
			return Validation{}, fmt.Errorf("sdk: encode document: %w", err)
		}
		raw = b
	}
	var out Validation
	if err := c.doJSON(ctx, http.MethodPost, "/v1/validate", raw, &out); err != nil {
		return Validation{}, err
	}
	return out, nil
}

// GenerateOption tunes a single Generate call.
type GenerateOption func(*generateRequest)

// WithK sets how many examples are retrieved for the prompt.
func WithK(k int) GenerateOption {
	return func(r *generateRequest) { r.K = &k }
}

// Generate runs the full pipeline on the server for query.
func (c *Client) Generate(ctx context.Context, query string, opts ...GenerateOption) (Generation, error) {
	req := generateRequest{Query: query}
	for _, o := range opts {
		o(&req)
	}
	var out Generation
	if err := c.doJSON(ctx, http.MethodPost, "/v1/generate", req, &out); err != nil {
		return Generation{}, err
	}
	return out, nil
}

// Reload asks the server to re-read its corpus and schema.
func (c *Client) Reload(ctx context.Context) (ReloadResult, error) {
	var out ReloadResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/reload", nil, &out); err != nil {
		return ReloadResult{}, err
	}
	return out, nil
}

// Health returns the server's health report. An unhealthy server still
// yields a Health with Status "error" rather than an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && out.Status != "" {
		return out, nil
	}
	if err != nil {
		return Health{}, err
	}
	return out, nil
}

// doJSON performs one JSON request. Non-2xx replies become *APIError; a 503
// body is still decoded into out so Health can report it.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) (err error) {
	defer func(start time.Time) { c.observe(method, path, start, err) }(time.Now())

	var body io.Reader
	switch v := in.(type) {
	case nil:
	case json.RawMessage:
		body = bytes.NewReader(v)
	default:
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("sdk: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("sdk: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sdk: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("sdk: decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && (eb.Code != "" || eb.Message != "") {
		return &APIError{StatusCode: status, Code: eb.Code, Message: eb.Message}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func (c *Client) observe(method, path string, start time.Time, err error) {
	if c.logger == nil {
		return
	}
	args := []any{"method", method, "path", path, "duration", time.Since(start)}
	if err != nil {
		c.logger.Warn("request failed", append(args, "error", err)...)
		return
	}
	c.logger.Debug("request completed", args...)
}
