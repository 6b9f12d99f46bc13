// Package metrics provides the Prometheus collectors of the MCP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK labels a tool call that produced a result.
const OutcomeOK = "ok"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	// ToolCalls counts dispatched tool calls by tool and outcome
	// (ok or the error kind).
	ToolCalls *prometheus.CounterVec

	// BackendRequestDuration tracks round trips to the tracing backend.
	BackendRequestDuration *prometheus.HistogramVec
}

// New creates a registry with the server collectors plus the process and Go
// runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempo_mcp_tool_calls_total",
				Help: "Total number of tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		BackendRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempo_mcp_backend_request_duration_seconds",
				Help:    "Duration of requests to the tracing backend in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"code", "method"},
		),
	}
}

// RecordToolCall increments the call counter for tool.
func (m *Metrics) RecordToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}
