package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
	"github.com/tempomcp/tempo-mcp-server/pkg/timerange"
	"github.com/tempomcp/tempo-mcp-server/pkg/traceql"
)

// Request is a decoded and validated tool call. It is one of
// *GetTraceRequest, *SearchTracesRequest or *MetricsRequest.
type Request interface {
	ToolName() string
}

// GetTraceRequest looks up a single trace.
type GetTraceRequest struct {
	TraceID string
}

// SearchTracesRequest searches traces in an absolute range. Start and End
// are epoch seconds. A non-empty RawQuery overrides Service and Tags.
type SearchTracesRequest struct {
	Service  string
	Tags     []traceql.Tag
	RawQuery string
	Start    int64
	End      int64
}

// MetricsRequest runs a TraceQL metrics query.
type MetricsRequest struct {
	Query     string
	Range     timerange.Range
	Step      string
	Exemplars int
}

func (*GetTraceRequest) ToolName() string     { return GetTraceToolName }
func (*SearchTracesRequest) ToolName() string { return SearchTracesToolName }
func (*MetricsRequest) ToolName() string      { return TraceQLMetricsToolName }

type getTraceArgs struct {
	TraceID *string `json:"traceId"`
}

type searchTracesArgs struct {
	Service  *string         `json:"service"`
	Tags     json.RawMessage `json:"tags"`
	RawQuery *string         `json:"rawQuery"`
	TraceQL  *string         `json:"traceQL"`
	Start    *string         `json:"start"`
	End      *string         `json:"end"`
}

type metricsArgs struct {
	Query     *string  `json:"query"`
	Start     *string  `json:"start"`
	End       *string  `json:"end"`
	Since     *string  `json:"since"`
	Step      *string  `json:"step"`
	Exemplars *float64 `json:"exemplars"`
}

// DecodeRequest decodes raw into the typed request of the named tool.
// Unknown fields, wrong types and missing required fields are ValidationErrors.
func DecodeRequest(name string, raw json.RawMessage) (Request, error) {
	switch name {
	case GetTraceToolName:
		return decodeGetTrace(raw)
	case SearchTracesToolName:
		return decodeSearchTraces(raw)
	case TraceQLMetricsToolName:
		return decodeMetrics(raw)
	default:
		return nil, core.NewUnknownToolError(name)
	}
}

func decodeGetTrace(raw json.RawMessage) (*GetTraceRequest, error) {
	var args getTraceArgs
	if err := decodeStrict(raw, &args); err != nil {
		return nil, err
	}
	traceID, err := requireString("traceId", args.TraceID)
	if err != nil {
		return nil, err
	}
	return &GetTraceRequest{TraceID: traceID}, nil
}

func decodeSearchTraces(raw json.RawMessage) (*SearchTracesRequest, error) {
	var args searchTracesArgs
	if err := decodeStrict(raw, &args); err != nil {
		return nil, err
	}

	start, err := requireString("start", args.Start)
	if err != nil {
		return nil, err
	}
	end, err := requireString("end", args.End)
	if err != nil {
		return nil, err
	}
	startSec, endSec, err := timerange.ResolveAbsoluteRange(start, end)
	if err != nil {
		return nil, err
	}

	tags, err := decodeTags(args.Tags)
	if err != nil {
		return nil, err
	}

	req := &SearchTracesRequest{
		Service: deref(args.Service),
		Tags:    tags,
		Start:   startSec,
		End:     endSec,
	}
	req.RawQuery = deref(args.RawQuery)
	if req.RawQuery == "" {
		req.RawQuery = deref(args.TraceQL)
	}
	return req, nil
}

func decodeMetrics(raw json.RawMessage) (*MetricsRequest, error) {
	var args metricsArgs
	if err := decodeStrict(raw, &args); err != nil {
		return nil, err
	}

	query, err := requireString("query", args.Query)
	if err != nil {
		return nil, err
	}

	r, err := timerange.NewRange(args.Start, args.End, args.Since)
	if err != nil {
		return nil, err
	}

	req := &MetricsRequest{Query: query, Range: r}

	if args.Step != nil {
		if strings.TrimSpace(*args.Step) == "" {
			return nil, core.NewValidationError("step must not be empty")
		}
		req.Step = *args.Step
	}

	if args.Exemplars != nil {
		n := *args.Exemplars
		if n != math.Trunc(n) || n < 1 || n > math.MaxInt32 {
			return nil, core.NewValidationError("exemplars must be a positive integer, got %v", n)
		}
		req.Exemplars = int(n)
	}
	return req, nil
}

// decodeTags keeps the insertion order of the tags object.
func decodeTags(raw json.RawMessage) ([]traceql.Tag, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, core.NewValidationError("invalid type for argument %q: expected object", "tags")
	}

	om := orderedmap.New[string, string]()
	if err := json.Unmarshal(trimmed, om); err != nil {
		return nil, core.NewValidationError("invalid argument %q: values must be strings", "tags")
	}

	tags := make([]traceql.Tag, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		tags = append(tags, traceql.Tag{Key: pair.Key, Value: pair.Value})
	}
	return tags, nil
}

func decodeStrict(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if raw[0] != '{' {
		return core.NewValidationError("arguments must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return argumentError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.NewValidationError("arguments must be a single JSON object")
	}
	return nil
}

func argumentError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return core.NewValidationError("invalid type for argument %q: expected %s, got %s",
			typeErr.Field, jsonTypeName(typeErr.Type), typeErr.Value)
	}

	// encoding/json reports unknown fields only through the message text.
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return core.NewValidationError("unknown argument %s", field)
	}

	return core.NewValidationError("invalid arguments: %s", err.Error())
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

func requireString(name string, v *string) (string, error) {
	if v == nil {
		return "", core.NewValidationError("missing required argument: %s", name)
	}
	if strings.TrimSpace(*v) == "" {
		return "", core.NewValidationError("argument %s must not be empty", name)
	}
	return *v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

