// Package tempo is a client for the read side of the Tempo HTTP API.
package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/timerange"
)

// Error message prefixes, one per operation.
const (
	fetchTracePrefix   = "Failed to fetch trace: "
	searchTracesPrefix = "Failed to search traces: "
	queryMetricsPrefix = "Failed to fetch TraceQL metrics: "
)

// maxResponseBytes caps the body read from a single backend answer.
const maxResponseBytes = 32 << 20

// Backend is the set of Tempo operations the tools depend on.
type Backend interface {
	FetchTrace(ctx context.Context, traceID string) (json.RawMessage, error)
	SearchTraces(ctx context.Context, opts SearchOptions) ([]json.RawMessage, error)
	QueryMetrics(ctx context.Context, opts MetricsOptions) (json.RawMessage, error)
}

// SearchOptions are the inputs of SearchTraces. Start and End are epoch seconds.
type SearchOptions struct {
	Query string
	Start int64
	End   int64
}

// MetricsOptions are the inputs of QueryMetrics.
type MetricsOptions struct {
	Query     string
	Range     timerange.Range
	Step      string
	Exemplars int
}

// Client talks to one Tempo instance. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient returns a Client for baseURL. A trailing slash on baseURL is ignored.
func NewClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchTrace returns the trace document stored under traceID.
func (c *Client) FetchTrace(ctx context.Context, traceID string) (json.RawMessage, error) {
	var trace json.RawMessage
	path := "/api/traces/" + url.PathEscape(traceID)
	if err := c.get(ctx, path, nil, fetchTracePrefix, &trace); err != nil {
		return nil, err
	}
	return trace, nil
}

type searchResponse struct {
	Traces []json.RawMessage `json:"traces"`
}

// SearchTraces returns the trace summaries matching opts. A response without
// a traces field yields an empty, non-nil slice.
func (c *Client) SearchTraces(ctx context.Context, opts SearchOptions) ([]json.RawMessage, error) {
	params := core.Encode(
		core.WithQuery(opts.Query),
		core.WithStart(opts.Start),
		core.WithEnd(opts.End),
	)

	var resp searchResponse
	if err := c.get(ctx, "/api/search", params, searchTracesPrefix, &resp); err != nil {
		return nil, err
	}
	if resp.Traces == nil {
		resp.Traces = []json.RawMessage{}
	}
	return resp.Traces, nil
}

// QueryMetrics runs a TraceQL metrics range query and returns the backend
// answer unchanged.
func (c *Client) QueryMetrics(ctx context.Context, opts MetricsOptions) (json.RawMessage, error) {
	qopts := []core.QueryParamOption{core.WithQuery(opts.Query)}
	if opts.Range != nil {
		qopts = append(qopts, opts.Range.Options()...)
	}
	qopts = append(qopts, core.WithStep(opts.Step), core.WithExemplars(opts.Exemplars))

	var result json.RawMessage
	if err := c.get(ctx, "/api/metrics/query_range", core.Encode(qopts...), queryMetricsPrefix, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// get issues a GET against path and decodes a 2xx body into out.
// Network failures, unreadable bodies and non-2xx answers are TransportErrors;
// a 2xx body that is not valid JSON is an UpstreamError.
func (c *Client) get(ctx context.Context, path string, params url.Values, prefix string, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.WrapTransport(prefix, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.WrapTransport(prefix, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.WrapTransport(prefix, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return core.WrapUpstream(prefix, fmt.Errorf("invalid JSON response: %w", err))
	}
	return nil
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status code %d", e.StatusCode)
	}
	return fmt.Sprintf("status code %d: %s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// backend status failure.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
