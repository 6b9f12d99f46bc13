package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/timerange"
)

var TracesResource = mcp.NewResourceTemplate(
	"tempo://traces/{start}/{end}",
	"Traces",
	mcp.WithTemplateDescription("Traces between two ISO 8601 instants. Colons may be percent-encoded, e.g. tempo://traces/2023-01-01T00%3A00%3A00Z/2023-01-02T00%3A00%3A00Z"),
	mcp.WithTemplateMIMEType("application/json"),
)

var tracesURIPattern = regexp.MustCompile(`^tempo://traces/([^/]+)/([^/]+)$`)

// TracesResourceHandler serves tempo://traces/{start}/{end} with the same
// range resolution as search_traces and no filter.
func (d *Dispatcher) TracesResourceHandler() server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		req, err := parseTracesURI(request.Params.URI)
		if err != nil {
			return nil, err
		}

		traces, err := d.SearchTraces(ctx, req)
		if err != nil {
			return nil, err
		}

		r, err := json.Marshal(traces)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response, err: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(r),
			},
		}, nil
	}
}

func parseTracesURI(uri string) (*SearchTracesRequest, error) {
	m := tracesURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return nil, core.NewValidationError("invalid traces resource URI %q, expected tempo://traces/{start}/{end}", uri)
	}

	start, err := url.PathUnescape(m[1])
	if err != nil {
		return nil, core.NewValidationError("invalid start in resource URI: %s", err.Error())
	}
	end, err := url.PathUnescape(m[2])
	if err != nil {
		return nil, core.NewValidationError("invalid end in resource URI: %s", err.Error())
	}

	startSec, endSec, err := timerange.ResolveAbsoluteRange(start, end)
	if err != nil {
		return nil, err
	}
	return &SearchTracesRequest{Start: startSec, End: endSec}, nil
}
