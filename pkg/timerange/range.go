package timerange

import (
	"strings"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
)

// Range is one of Absolute, Relative or Unspecified. The variants are
// mutually exclusive by construction.
type Range interface {
	// Options returns the query parameters describing the range.
	Options() []core.QueryParamOption
	isRange()
}

// Absolute is a closed range in epoch seconds.
type Absolute struct {
	Start int64
	End   int64
}

// Relative is a range ending now, Since is passed through to the backend as is.
type Relative struct {
	Since string
}

// Unspecified leaves the range to the backend default.
type Unspecified struct{}

func (a Absolute) Options() []core.QueryParamOption {
	return []core.QueryParamOption{core.WithStart(a.Start), core.WithEnd(a.End)}
}

func (r Relative) Options() []core.QueryParamOption {
	return []core.QueryParamOption{core.WithSince(r.Since)}
}

func (Unspecified) Options() []core.QueryParamOption { return nil }

func (Absolute) isRange()    {}
func (Relative) isRange()    {}
func (Unspecified) isRange() {}

// NewRange builds a Range from optional start, end and since inputs.
// start and end must be given together and never alongside since.
func NewRange(start, end, since *string) (Range, error) {
	hasStart, hasEnd, hasSince := start != nil, end != nil, since != nil

	switch {
	case hasSince && (hasStart || hasEnd):
		return nil, core.NewValidationError("since cannot be combined with start/end, use one range specification")
	case hasSince:
		if strings.TrimSpace(*since) == "" {
			return nil, core.NewValidationError("since must not be empty")
		}
		return Relative{Since: *since}, nil
	case hasStart != hasEnd:
		return nil, core.NewValidationError("start and end must be provided together")
	case hasStart:
		s, e, err := ResolveAbsoluteRange(*start, *end)
		if err != nil {
			return nil, err
		}
		return Absolute{Start: s, End: e}, nil
	default:
		return Unspecified{}, nil
	}
}
