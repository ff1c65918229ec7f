// Package gateway is the single path for outbound calls to the portal backend.
//
// Every request carries the current credential as a bearer header and the
// request ID from the context. Callers never attach either themselves.
//
//	var out struct{ Orders []orders.Order `json:"orders"` }
//	err := gw.Get("/orders").Decode(&out).Send(ctx)
//
//	err := gw.Post("/suppliers/respond/" + id).
//	    Body(map[string]string{"action": "accept"}).
//	    Send(ctx)
//
// A 401 from the backend is returned as an *Error like any other failure;
// the gateway never clears the session itself.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/metrics"
	"github.com/shashiranjanraj/aquaportal/pkg/reqid"
)

// TokenSource supplies the credential attached to every call. An empty string
// means anonymous.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// defaultTransport is the connection-pooled transport shared by every Client.
var defaultTransport = &http.Transport{
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	timeout time.Duration

	mu     sync.RWMutex
	tokens TokenSource
	http   *http.Client
}

// New returns a Client rooted at baseURL. timeout applies per attempt.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Transport: defaultTransport},
	}
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// UseTokenSource wires the credential provider. The session store is the only
// production source.
func (c *Client) UseTokenSource(src TokenSource) {
	c.mu.Lock()
	c.tokens = src
	c.mu.Unlock()
}

// UseHTTPClient swaps the underlying *http.Client. Tests point it at an
// httptest server transport.
func (c *Client) UseHTTPClient(hc *http.Client) {
	c.mu.Lock()
	c.http = hc
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) doer() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http
}

// Get starts a GET request against path.
func (c *Client) Get(path string) *Request { return c.newRequest(http.MethodGet, path) }

// Post starts a POST request against path.
func (c *Client) Post(path string) *Request { return c.newRequest(http.MethodPost, path) }

// Put starts a PUT request against path.
func (c *Client) Put(path string) *Request { return c.newRequest(http.MethodPut, path) }

// Delete starts a DELETE request against path.
func (c *Client) Delete(path string) *Request { return c.newRequest(http.MethodDelete, path) }

func (c *Client) newRequest(method, path string) *Request {
	return &Request{
		client:  c,
		method:  method,
		path:    path,
		route:   path,
		headers: map[string]string{"Accept": "application/json"},
	}
}

// ------------------- Request -------------------

// Request is a fluent backend request builder.
type Request struct {
	client  *Client
	method  string
	path    string
	route   string
	headers map[string]string
	body    interface{}
	dest    interface{}
}

// Route sets the metrics label used instead of the concrete path, so ids in
// paths do not explode label cardinality.
func (r *Request) Route(template string) *Request {
	r.route = template
	return r
}

// Header adds a single header to the request.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Body sets the JSON request body.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Decode unmarshals a 2xx response body into dest.
func (r *Request) Decode(dest interface{}) *Request {
	r.dest = dest
	return r
}

// ------------------- Send -------------------

// Send executes the request once. A failure is returned to the caller, which
// surfaces it; nothing is retried.
func (r *Request) Send(ctx context.Context) error {
	err := r.do(ctx)
	var e *Error
	if errors.As(err, &e) && e.Status == 0 && !errors.Is(err, context.Canceled) {
		logger.WithCtx(ctx).Warn("gateway: backend unreachable",
			"method", r.method, "route", r.route, "error", err)
	}
	return err
}

func (r *Request) do(ctx context.Context) error {
	start := time.Now()
	status := 0
	defer func() { metrics.ObserveBackend(r.method, r.route, status, start) }()

	body, err := r.buildBody()
	if err != nil {
		return r.fail(0, "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.client.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.method, r.client.baseURL+r.path, body)
	if err != nil {
		return r.fail(0, "", fmt.Errorf("build request: %w", err))
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := r.client.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if id := reqid.FromCtx(ctx); id != "" {
		req.Header.Set(reqid.Header, id)
	}

	resp, err := r.client.doer().Do(req)
	if err != nil {
		return r.fail(0, "", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return r.fail(status, "", fmt.Errorf("read body: %w", err))
	}

	if status < 200 || status >= 300 {
		return r.fail(status, backendMessage(raw), nil)
	}

	if r.dest != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, r.dest); err != nil {
			return r.fail(status, "", fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func (r *Request) buildBody() (io.Reader, error) {
	if r.body == nil {
		return nil, nil
	}
	b, err := json.Marshal(r.body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return bytes.NewReader(b), nil
}

func (r *Request) fail(status int, msg string, cause error) *Error {
	return &Error{Method: r.method, Path: r.path, Status: status, Message: msg, Err: cause}
}

// backendMessage pulls the human-readable message out of an error body. The
// backend uses "message"; some middleware answers with "error".
func backendMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
