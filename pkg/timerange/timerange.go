// Package timerange converts caller supplied time inputs into the forms the
// Tempo HTTP API expects: epoch seconds for instants and opaque duration
// tokens for relative ranges.
package timerange

import (
	"strings"
	"time"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
)

// ISO8601Example is quoted in validation messages.
const ISO8601Example = "2023-01-01T00:00:00Z"

// Layouts without a zone offset are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ResolveInstant parses text as an ISO-8601 instant and returns
// floor(milliseconds since epoch / 1000).
func ResolveInstant(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, core.NewValidationError("Invalid date format: empty value. Please use ISO 8601 format (e.g. %s)", ISO8601Example)
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		// Unix floors toward negative infinity, which matches
		// floor(ms/1000) for every instant including pre-1970 ones.
		return t.Unix(), nil
	}
	return 0, core.NewValidationError("Invalid date format %q. Please use ISO 8601 format (e.g. %s)", text, ISO8601Example)
}

// ResolveAbsoluteRange resolves both ends of a range. Out of order ranges are
// passed through, the backend decides what they mean.
func ResolveAbsoluteRange(startText, endText string) (int64, int64, error) {
	start, err := ResolveInstant(startText)
	if err != nil {
		return 0, 0, core.NewValidationError("Invalid start time: %s", err.Error())
	}
	end, err := ResolveInstant(endText)
	if err != nil {
		return 0, 0, core.NewValidationError("Invalid end time: %s", err.Error())
	}
	return start, end, nil
}
