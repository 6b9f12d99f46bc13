// Package traceql builds TraceQL filter expressions from structured search inputs.
package traceql

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tempomcp/tempo-mcp-server/pkg/core"
)

// ServiceNameAttribute is the attribute matched by the service filter.
const ServiceNameAttribute = "resource.service.name"

// attributePattern matches unquoted TraceQL attribute names, scoped
// (span.http.method, resource.k8s.pod.name) or unscoped (.foo).
var attributePattern = regexp.MustCompile(`^\.?[A-Za-z_][A-Za-z0-9_./:-]*$`)

// Tag is a single attribute equality filter.
type Tag struct {
	Key   string
	Value string
}

// Build returns the TraceQL expression for the given inputs.
//
// A non-empty rawQuery is returned verbatim and service and tags are ignored.
// Otherwise the service clause and one clause per tag, in order, are joined
// with &&. With no inputs the result is the empty expression, which the
// backend treats as match-all.
func Build(service string, tags []Tag, rawQuery string) (string, error) {
	if rawQuery != "" {
		return rawQuery, nil
	}

	clauses := make([]string, 0, len(tags)+1)
	if service != "" {
		clause, err := equality(ServiceNameAttribute, service)
		if err != nil {
			return "", core.NewValidationError("invalid service: %s", err.Error())
		}
		clauses = append(clauses, clause)
	}

	for _, tag := range tags {
		if !attributePattern.MatchString(tag.Key) {
			return "", core.NewValidationError("invalid tag key %q: must be a TraceQL attribute name such as span.http.method", tag.Key)
		}
		clause, err := equality(tag.Key, tag.Value)
		if err != nil {
			return "", core.NewValidationError("invalid value for tag %q: %s", tag.Key, err.Error())
		}
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " && "), nil
}

func equality(attribute, value string) (string, error) {
	quoted, err := Quote(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("{ %s = %s }", attribute, quoted), nil
}

// Quote renders s as a double-quoted TraceQL string literal. Backslash, quote,
// newline, carriage return and tab are escaped; other control characters are rejected.
func Quote(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if unicode.IsControl(r) {
				return "", fmt.Errorf("control character %U is not allowed", r)
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String(), nil
}
