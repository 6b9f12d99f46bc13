package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/timerange"
)

// Instructions is sent to clients on initialize.
const Instructions = `Tools for reading distributed traces from Grafana Tempo.

- get_trace fetches one trace by its ID.
- search_traces finds traces in an ISO 8601 time range, filtered by service name, span or resource attributes, or a raw TraceQL query.
- get_traceql_metrics runs a TraceQL metrics query such as "{ resource.service.name = \"api\" } | rate()" over a range given by start/end or since.

Use search_traces to find trace IDs, then get_trace to inspect a trace.`

var GetTraceTool = mcp.NewTool(GetTraceToolName,
	mcp.WithTitleAnnotation("Get Trace"),
	mcp.WithDescription("Fetches a single trace by ID, including all of its spans."),
	mcp.WithString("traceId",
		mcp.Description("The ID of the trace to fetch, as returned by search_traces."),
		mcp.Required(),
	),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
)

var SearchTracesTool = mcp.NewTool(SearchTracesToolName,
	mcp.WithTitleAnnotation("Search Traces"),
	mcp.WithDescription(`Searches traces in a time range.

Filters on service and tags are combined with &&. When rawQuery is set, service and tags are ignored and the query is sent as is. With no filter all traces in the range match.`),
	mcp.WithString("start",
		mcp.Description(fmt.Sprintf("Start of the range in ISO 8601 format, e.g. %s", timerange.ISO8601Example)),
		mcp.Required(),
	),
	mcp.WithString("end",
		mcp.Description("End of the range in ISO 8601 format, e.g. 2023-01-02T00:00:00Z"),
		mcp.Required(),
	),
	mcp.WithString("service",
		mcp.Description("Matches traces whose resource.service.name equals this value."),
	),
	mcp.WithObject("tags",
		mcp.Description(`Attribute equality filters, e.g. {"span.http.method": "GET"}. Keys are TraceQL attribute names, values are strings.`),
		mcp.AdditionalProperties(map[string]any{"type": "string"}),
	),
	mcp.WithString("rawQuery",
		mcp.Description(`A TraceQL query, e.g. { span.http.status_code >= 500 }. Overrides service and tags.`),
	),
	mcp.WithString("traceQL",
		mcp.Description("Alias of rawQuery. rawQuery wins if both are set."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
)

var TraceQLMetricsTool = mcp.NewTool(TraceQLMetricsToolName,
	mcp.WithTitleAnnotation("Get TraceQL Metrics"),
	mcp.WithDescription(`Runs a TraceQL metrics range query and returns the resulting series.

Give either start and end, or since. Without a range the backend default applies.`),
	mcp.WithString("query",
		mcp.Description(`TraceQL metrics query, e.g. { resource.service.name = "api" } | rate() by (span.http.route)`),
		mcp.Required(),
	),
	mcp.WithString("start",
		mcp.Description("Start of the range in ISO 8601 format. Requires end."),
	),
	mcp.WithString("end",
		mcp.Description("End of the range in ISO 8601 format. Requires start."),
	),
	mcp.WithString("since",
		mcp.Description("Relative range ending now, e.g. 15m, 1h, 24h. Cannot be combined with start/end."),
	),
	mcp.WithString("step",
		mcp.Description("Resolution step of the series, e.g. 30s, 1m."),
	),
	mcp.WithNumber("exemplars",
		mcp.Description("Maximum number of exemplars to return per series."),
		mcp.Min(1),
	),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(false),
)

// Register adds the Tempo tools and resources to s.
func Register(s *server.MCPServer, d *Dispatcher) {
	s.AddTool(GetTraceTool, d.ToolHandler(GetTraceToolName))
	s.AddTool(SearchTracesTool, d.ToolHandler(SearchTracesToolName))
	s.AddTool(TraceQLMetricsTool, d.ToolHandler(TraceQLMetricsToolName))

	s.AddResourceTemplate(TracesResource, d.TracesResourceHandler())
}

// ToolHandler adapts Dispatch for the named tool to an MCP tool handler.
// Domain errors become error results carrying the kind, anything else is
// returned as a handler error.
func (d *Dispatcher) ToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawArgs, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}

		env, err := d.Dispatch(ctx, name, rawArgs)
		if err != nil {
			return errorResult(err)
		}
		return mcp.NewToolResultText(env.Text()), nil
	}
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	var de *core.DomainError
	if !errors.As(err, &de) {
		return nil, err
	}

	r, mErr := json.Marshal(de)
	if mErr != nil {
		return nil, fmt.Errorf("failed to marshal error, err: %w", mErr)
	}
	return mcp.NewToolResultError(string(r)), nil
}
