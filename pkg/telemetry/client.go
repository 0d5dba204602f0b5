package telemetry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("telemetry")

const (
	DefaultBaseURL        = "https://dev.azure.com"
	DefaultReleaseBaseURL = "https://vsrm.dev.azure.com"
	DefaultWindowDays     = 7
	apiVersion            = "7.1"
)

// ErrUpstream marks every failure reported by the telemetry source itself:
// non-success responses and inconsistent pagination state.
var ErrUpstream = errors.New("telemetry upstream error")

// Credentials identify the organization/project and carry the opaque
// personal access token attached to every request.
type Credentials struct {
	Organization string
	Project      string
	Token        string
}

// ProgressReporter receives coarse progress updates while paginating.
type ProgressReporter interface {
	SetPhase(phase string)
	SetDetail(detail string)
}

type Client struct {
	creds          Credentials
	baseURL        string
	releaseBaseURL string
	windowDays     int
	httpClient     *http.Client
	semaphore      chan struct{}
	limiter        *rateLimiter
	reporter       ProgressReporter
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithReleaseBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.releaseBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithWindowDays sets the width of the date windows FetchRuns partitions a
// range into.
func WithWindowDays(days int) Option {
	return func(c *Client) {
		if days < 1 {
			days = DefaultWindowDays
		}
		c.windowDays = days
	}
}

func WithMaxConcurrency(max int) Option {
	return func(c *Client) {
		if max < 1 {
			max = 1
		}
		c.semaphore = make(chan struct{}, max)
	}
}

func WithProgress(reporter ProgressReporter) Option {
	return func(c *Client) {
		c.reporter = reporter
	}
}

func NewClient(creds Credentials, opts ...Option) *Client {
	client := &Client{
		creds:          creds,
		baseURL:        DefaultBaseURL,
		releaseBaseURL: DefaultReleaseBaseURL,
		windowDays:     DefaultWindowDays,
		limiter:        &rateLimiter{},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.semaphore == nil {
		client.semaphore = make(chan struct{}, 10)
	}

	if client.httpClient == nil {
		var base http.RoundTripper = http.DefaultTransport

		base = &ThrottledTransport{
			Base:      base,
			Limiter:   client.limiter,
			Semaphore: client.semaphore,
		}

		base = otelhttp.NewTransport(base)

		client.httpClient = &http.Client{
			Transport: base,
			Timeout:   60 * time.Second,
		}
	}

	return client
}

// projectURL returns {base}/{org}/{project}/_apis/{path}.
func (c *Client) projectURL(base, path string) string {
	return fmt.Sprintf("%s/%s/%s/_apis/%s", base, c.creds.Organization, c.creds.Project, strings.TrimLeft(path, "/"))
}

func (c *Client) phase(phase, detail string) {
	if c.reporter == nil {
		return
	}
	c.reporter.SetPhase(phase)
	c.reporter.SetDetail(detail)
}

// APIError is returned for any non-success response. Payload holds the raw
// upstream body so callers can surface it verbatim.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	Message    string
	Payload    string
}

func (e *APIError) Error() string {
	base := fmt.Sprintf("error fetching %s: %s", e.URL, e.Status)
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Payload)
	}
	if detail != "" {
		base += " - " + detail
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return base + "\n  authentication failed; check the personal access token (token_env)"
	case http.StatusForbidden:
		return base + "\n  permission issue; the token needs Test Management, Build and Release read scopes"
	case http.StatusNotFound:
		return base + "\n  not found; verify organization, project and identifiers"
	}
	return base
}

func (e *APIError) Unwrap() error {
	return ErrUpstream
}

type upstreamMessage struct {
	Message string `json:"message"`
}

func newAPIError(resp *http.Response, requestURL string) error {
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        requestURL,
		Payload:    string(body),
	}
	if strings.Contains(resp.Header.Get("content-type"), "application/json") {
		var data upstreamMessage
		if err := json.Unmarshal(body, &data); err == nil {
			apiErr.Message = data.Message
		}
	}
	return apiErr
}

type rateLimiter struct {
	mu        sync.Mutex
	remaining int
	known     bool
	resetTime time.Time
}

// wait blocks until the upstream-advertised reset time has passed. It never
// re-issues requests; it only delays the next one.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	var delay time.Duration
	if r.known && r.remaining == 0 && !r.resetTime.IsZero() {
		delay = time.Until(r.resetTime)
	}
	r.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *rateLimiter) updateFromHeaders(headers http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remaining := headers.Get("x-ratelimit-remaining"); remaining != "" {
		if value, err := strconv.Atoi(remaining); err == nil {
			r.remaining = value
			r.known = true
		}
	}
	if retryAfter := headers.Get("retry-after"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			r.resetTime = time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}
}

// ThrottledTransport bounds in-flight requests and honors upstream rate-limit
// hints before sending. Failed requests are returned as-is.
type ThrottledTransport struct {
	Base      http.RoundTripper
	Limiter   *rateLimiter
	Semaphore chan struct{}
}

func (t *ThrottledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case t.Semaphore <- struct{}{}:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	defer func() { <-t.Semaphore }()

	if err := t.Limiter.wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.Limiter.updateFromHeaders(resp.Header)
	return resp, nil
}

func (c *Client) get(ctx context.Context, urlValue string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlValue, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", urlValue)
	}
	if c.creds.Token != "" {
		encoded := base64.StdEncoding.EncodeToString([]byte(":" + c.creds.Token))
		req.Header.Set("Authorization", "Basic "+encoded)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "testpulse")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", urlValue)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, urlValue)
	}
	return resp, nil
}
