// Package tools implements the Tempo tools: argument decoding, dispatch to the
// backend and the MCP registration of tools and resources.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/metrics"
	"github.com/tempomcp/tempo-mcp-server/pkg/tempo"
	"github.com/tempomcp/tempo-mcp-server/pkg/traceql"
)

// Tool names.
const (
	GetTraceToolName       = "get_trace"
	SearchTracesToolName   = "search_traces"
	TraceQLMetricsToolName = "get_traceql_metrics"
)

// outcomeError labels uncategorized failures in the call counter.
const outcomeError = "error"

// unknownToolLabel keeps caller supplied names out of the tool label.
const unknownToolLabel = "unknown"

// Content is a single item of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope is the result of a successful dispatch.
type Envelope struct {
	Content []Content `json:"content"`
}

// NewTextEnvelope wraps text as the only content item.
func NewTextEnvelope(text string) *Envelope {
	return &Envelope{Content: []Content{{Type: "text", Text: text}}}
}

// Text returns the text of the first content item.
func (e *Envelope) Text() string {
	if e == nil || len(e.Content) == 0 {
		return ""
	}
	return e.Content[0].Text
}

// Dispatcher routes tool calls to the backend. It keeps no per-call state and
// is safe for concurrent use.
type Dispatcher struct {
	backend tempo.Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for per-call records.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher returns a Dispatcher backed by backend.
func NewDispatcher(backend tempo.Backend, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch decodes rawArgs for the named tool, runs it and wraps the result.
// Arguments are fully validated before the backend is called, and a
// successful call performs exactly one backend read.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) (*Envelope, error) {
	started := time.Now()
	env, err := d.dispatch(ctx, name, rawArgs)
	d.observe(name, time.Since(started), err)
	return env, err
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, rawArgs json.RawMessage) (*Envelope, error) {
	req, err := DecodeRequest(name, rawArgs)
	if err != nil {
		return nil, err
	}

	var result any
	switch r := req.(type) {
	case *GetTraceRequest:
		result, err = d.backend.FetchTrace(ctx, r.TraceID)
	case *SearchTracesRequest:
		result, err = d.searchTraces(ctx, r)
	case *MetricsRequest:
		result, err = d.backend.QueryMetrics(ctx, tempo.MetricsOptions{
			Query:     r.Query,
			Range:     r.Range,
			Step:      r.Step,
			Exemplars: r.Exemplars,
		})
	default:
		return nil, core.NewUnknownToolError(name)
	}
	if err != nil {
		return nil, err
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s result: %w", name, err)
	}
	return NewTextEnvelope(string(text)), nil
}

// SearchTraces runs a search outside of a tool call, as the traces resource does.
func (d *Dispatcher) SearchTraces(ctx context.Context, req *SearchTracesRequest) ([]json.RawMessage, error) {
	started := time.Now()
	traces, err := d.searchTraces(ctx, req)
	d.observe(SearchTracesToolName, time.Since(started), err)
	return traces, err
}

func (d *Dispatcher) searchTraces(ctx context.Context, req *SearchTracesRequest) ([]json.RawMessage, error) {
	query, err := traceql.Build(req.Service, req.Tags, req.RawQuery)
	if err != nil {
		return nil, err
	}
	return d.backend.SearchTraces(ctx, tempo.SearchOptions{
		Query: query,
		Start: req.Start,
		End:   req.End,
	})
}

func (d *Dispatcher) observe(name string, elapsed time.Duration, err error) {
	if err == nil {
		d.metrics.RecordToolCall(name, metrics.OutcomeOK)
		d.logger.Debug("tool call completed", "tool", name, "duration", elapsed)
		return
	}

	if kind, ok := core.KindOf(err); ok {
		if kind == core.UnknownTool {
			d.metrics.RecordToolCall(unknownToolLabel, string(kind))
			d.logger.Warn("unknown tool called", "tool", name)
			return
		}
		d.metrics.RecordToolCall(name, string(kind))
		d.logger.Warn("tool call failed", "tool", name, "kind", kind, "duration", elapsed, "err", err)
		return
	}

	d.metrics.RecordToolCall(name, outcomeError)
	d.logger.Error("tool call failed", "tool", name, "duration", elapsed, "err", err)
}
