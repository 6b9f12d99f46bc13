// Package core holds the types shared by the Tempo query pipeline: the
// domain error taxonomy and the query parameter builders used by the backend client.
package core

import (
	"net/url"
	"strconv"
)

// QueryParamOption adds a query parameter to a backend request.
type QueryParamOption func(url.Values)

// WithQuery sets the TraceQL expression. Empty expressions are omitted so the
// backend applies its match-all default.
func WithQuery(query string) QueryParamOption {
	return func(v url.Values) {
		if query != "" {
			v.Add("q", query)
		}
	}
}

// WithStart sets the range start in epoch seconds.
func WithStart(start int64) QueryParamOption {
	return func(v url.Values) {
		v.Add("start", strconv.FormatInt(start, 10))
	}
}

// WithEnd sets the range end in epoch seconds.
func WithEnd(end int64) QueryParamOption {
	return func(v url.Values) {
		v.Add("end", strconv.FormatInt(end, 10))
	}
}

// WithSince sets a relative range ending now, e.g. "15m".
func WithSince(since string) QueryParamOption {
	return func(v url.Values) {
		if since != "" {
			v.Add("since", since)
		}
	}
}

// WithStep sets the metrics resolution step.
func WithStep(step string) QueryParamOption {
	return func(v url.Values) {
		if step != "" {
			v.Add("step", step)
		}
	}
}

// WithExemplars sets the maximum number of exemplars per series.
func WithExemplars(exemplars int) QueryParamOption {
	return func(v url.Values) {
		if exemplars > 0 {
			v.Add("exemplars", strconv.Itoa(exemplars))
		}
	}
}

// Encode applies opts to a fresh url.Values.
func Encode(opts ...QueryParamOption) url.Values {
	v := url.Values{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}
