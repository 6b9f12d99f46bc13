package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorKinds(t *testing.T) {
	err := NewValidationError("missing required argument: %s", "traceId")
	assert.Equal(t, "missing required argument: traceId", err.Error())
	assert.True(t, IsKind(err, ValidationError))
	assert.False(t, IsKind(err, TransportError))

	wrapped := fmt.Errorf("dispatch: %w", NewUnknownToolError("nope"))
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, UnknownTool, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWrapTransportKeepsCause(t *testing.T) {
	err := WrapTransport("Failed to fetch trace: ", context.DeadlineExceeded)
	assert.Equal(t, "Failed to fetch trace: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsKind(err, TransportError))

	up := WrapUpstream("Failed to search traces: ", errors.New("invalid JSON response"))
	assert.True(t, IsKind(up, UpstreamError))
	assert.Equal(t, "Failed to search traces: invalid JSON response", up.Error())
}

func TestEncode(t *testing.T) {
	v := Encode(
		WithQuery(""),
		WithStart(1672531200),
		WithEnd(1672617600),
		WithSince(""),
		WithStep("30s"),
		WithExemplars(0),
	)
	assert.Equal(t, "end=1672617600&start=1672531200&step=30s", v.Encode())

	v = Encode(WithQuery(`{ a = "b" }`), WithSince("1h"), WithExemplars(3))
	assert.Equal(t, `{ a = "b" }`, v.Get("q"))
	assert.Equal(t, "3", v.Get("exemplars"))
	assert.Equal(t, "1h", v.Get("since"))
}
