package core

import (
	"errors"
	"fmt"
)

// Kind classifies a DomainError.
type Kind string

const (
	// ValidationError is malformed or missing caller input. It never reaches the network.
	ValidationError Kind = "ValidationError"
	// TransportError is a network failure or a non-2xx answer from the backend.
	TransportError Kind = "TransportError"
	// UpstreamError is a 2xx answer whose body does not match the backend contract.
	UpstreamError Kind = "UpstreamError"
	// UnknownTool is an unrecognized tool name.
	UnknownTool Kind = "UnknownTool"
)

// DomainError is the error type surfaced to tool callers. Every failure the
// core knows how to classify carries one of the kinds above.
type DomainError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	cause error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewValidationError returns a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *DomainError {
	return &DomainError{Kind: ValidationError, Message: fmt.Sprintf(format, args...)}
}

// NewUnknownToolError returns an UnknownTool error for name.
func NewUnknownToolError(name string) *DomainError {
	return &DomainError{Kind: UnknownTool, Message: fmt.Sprintf("Unknown tool: %s", name)}
}

// WrapTransport wraps err as a TransportError. The message is prefix followed
// by the underlying failure text, e.g. "Failed to fetch trace: <cause>".
func WrapTransport(prefix string, err error) *DomainError {
	return &DomainError{Kind: TransportError, Message: prefix + err.Error(), cause: err}
}

// WrapUpstream wraps err as an UpstreamError with the same message convention as WrapTransport.
func WrapUpstream(prefix string, err error) *DomainError {
	return &DomainError{Kind: UpstreamError, Message: prefix + err.Error(), cause: err}
}

// KindOf reports the kind of the first DomainError in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a DomainError of kind k.
func IsKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
