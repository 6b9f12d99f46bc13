package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/timerange"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL+"/", "tempo-mcp-server/test")
}

func TestFetchTrace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/traces/abc123", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "tempo-mcp-server/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"batches":[{"resource":{}}]}`))
	})

	trace, err := client.FetchTrace(context.Background(), "abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"batches":[{"resource":{}}]}`, string(trace))
}

func TestFetchTraceEscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/traces/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.FetchTrace(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestSearchTraces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `{ resource.service.name = "checkout-api" }`, q.Get("q"))
		assert.Equal(t, "1672531200", q.Get("start"))
		assert.Equal(t, "1672617600", q.Get("end"))
		_, _ = w.Write([]byte(`{"traces":[{"traceID":"1"},{"traceID":"2"}],"metrics":{}}`))
	})

	traces, err := client.SearchTraces(context.Background(), SearchOptions{
		Query: `{ resource.service.name = "checkout-api" }`,
		Start: 1672531200,
		End:   1672617600,
	})
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.JSONEq(t, `{"traceID":"1"}`, string(traces[0]))
}

func TestSearchTracesOmitsEmptyQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["q"]
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{"traces":[]}`))
	})

	traces, err := client.SearchTraces(context.Background(), SearchOptions{Start: 1, End: 2})
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestSearchTracesMissingTraces(t *testing.T) {
	for _, body := range []string{`{}`, `{"traces":null}`, `{"metrics":{"inspectedTraces":0}}`} {
		t.Run(body, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			traces, err := client.SearchTraces(context.Background(), SearchOptions{Start: 1, End: 2})
			require.NoError(t, err)
			require.NotNil(t, traces)
			assert.Empty(t, traces)
		})
	}
}

func TestQueryMetrics(t *testing.T) {
	tests := []struct {
		name string
		opts MetricsOptions
		want string
	}{
		{
			name: "absolute range with step and exemplars",
			opts: MetricsOptions{
				Query:     "{} | rate()",
				Range:     timerange.Absolute{Start: 1672531200, End: 1672617600},
				Step:      "1m",
				Exemplars: 5,
			},
			want: "end=1672617600&exemplars=5&q=%7B%7D+%7C+rate%28%29&start=1672531200&step=1m",
		},
		{
			name: "relative range",
			opts: MetricsOptions{Query: "{} | rate()", Range: timerange.Relative{Since: "1h"}},
			want: "q=%7B%7D+%7C+rate%28%29&since=1h",
		},
		{
			name: "unspecified range",
			opts: MetricsOptions{Query: "{} | rate()", Range: timerange.Unspecified{}},
			want: "q=%7B%7D+%7C+rate%28%29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/metrics/query_range", r.URL.Path)
				assert.Equal(t, tt.want, r.URL.Query().Encode())
				_, _ = w.Write([]byte(`{"series":[]}`))
			})

			result, err := client.QueryMetrics(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.JSONEq(t, `{"series":[]}`, string(result))
		})
	}
}

func TestNon2xxIsTransportError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(*Client) error
		prefix string
	}{
		{
			name:   "trace not found",
			status: http.StatusNotFound,
			call: func(c *Client) error {
				_, err := c.FetchTrace(context.Background(), "missing")
				return err
			},
			prefix: "Failed to fetch trace: ",
		},
		{
			name:   "search server error",
			status: http.StatusInternalServerError,
			call: func(c *Client) error {
				_, err := c.SearchTraces(context.Background(), SearchOptions{Start: 1, End: 2})
				return err
			},
			prefix: "Failed to search traces: ",
		},
		{
			name:   "metrics bad request",
			status: http.StatusBadRequest,
			call: func(c *Client) error {
				_, err := c.QueryMetrics(context.Background(), MetricsOptions{Query: "{", Range: timerange.Unspecified{}})
				return err
			},
			prefix: "Failed to fetch TraceQL metrics: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", tt.status)
			})

			err := tt.call(client)
			require.Error(t, err)
			assert.True(t, core.IsKind(err, core.TransportError), "got %v", err)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Contains(t, err.Error(), "boom")
			assert.Regexp(t, "^"+tt.prefix, err.Error())
		})
	}
}

func TestInvalidJSONIsUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})

	_, err := client.FetchTrace(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.UpstreamError), "got %v", err)
	assert.Contains(t, err.Error(), "Failed to fetch trace: ")

	_, err = client.SearchTraces(context.Background(), SearchOptions{Start: 1, End: 2})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.UpstreamError))
}

func TestEmptyBodyIsUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.QueryMetrics(context.Background(), MetricsOptions{Query: "{} | rate()", Range: timerange.Unspecified{}})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.UpstreamError))
}

func TestConnectionFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(http.DefaultClient, baseURL, "")
	_, err := client.FetchTrace(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.TransportError), "got %v", err)
	assert.Regexp(t, "^Failed to fetch trace: ", err.Error())
	assert.Zero(t, StatusCode(err))
}

func TestCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchTrace(ctx, "abc")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.TransportError))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTrailingSlashIsTrimmed(t *testing.T) {
	c := NewClient(nil, "http://tempo:3200///", "")
	assert.Equal(t, "http://tempo:3200", c.BaseURL())
}

var _ Backend = (*Client)(nil)

func TestRawMessagesAreNotReencoded(t *testing.T) {
	const body = `{"traces":[{"traceID":"1","rootServiceName":"a",  "durationMs":3}]}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	traces, err := client.SearchTraces(context.Background(), SearchOptions{Start: 1, End: 2})
	require.NoError(t, err)
	require.Len(t, traces, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(traces[0], &decoded))
	assert.Equal(t, "a", decoded["rootServiceName"])
}
