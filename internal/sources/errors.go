package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies why a source call failed. Callers at the aggregation
// boundary turn any of these into "this sub-section is unavailable" — only
// the engine decides whether a failure is fatal.
type Kind string

const (
	KindTimeout  Kind = "timeout"
	KindHTTP     Kind = "http"
	KindProvider Kind = "provider"
	KindInvalid  Kind = "invalid"
)

// SourceError is the tagged failure every client returns instead of letting
// raw transport errors escape its boundary.
type SourceError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// newError wraps err, classifying timeouts so the engine can distinguish a
// slow source from a broken one.
func newError(source string, err error) *SourceError {
	kind := KindHTTP
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &SourceError{Source: source, Kind: kind, Err: err}
}

func providerError(source string, err error) *SourceError {
	return &SourceError{Source: source, Kind: KindProvider, Err: err}
}

// Sanitize returns a user-safe message for a source error. Provider errors
// that mention credentials or credits are replaced with a generic message so
// provider secrets never leak to clients.
func Sanitize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, needle := range []string{"credential", "credit", "api key", "apikey", "token", "unauthorized"} {
		if strings.Contains(lower, needle) {
			return "lookup service temporarily unavailable"
		}
	}
	var se *SourceError
	if errors.As(err, &se) && se.Kind == KindTimeout {
		return "lookup timed out"
	}
	return msg
}
