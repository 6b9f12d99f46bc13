package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToolCall(t *testing.T) {
	m := New()
	m.RecordToolCall("get_trace", OutcomeOK)
	m.RecordToolCall("get_trace", OutcomeOK)
	m.RecordToolCall("search_traces", "ValidationError")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("get_trace", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("search_traces", "ValidationError")))
}

func TestRecordToolCallNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.RecordToolCall("get_trace", OutcomeOK) })
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.BackendRequestDuration.WithLabelValues("200", "get").Observe(0.2)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["tempo_mcp_backend_request_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}
