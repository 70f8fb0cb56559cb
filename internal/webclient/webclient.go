package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient fetches pages. Backends differ in how they execute the request
// (plain net/http vs. a rendering browser) but share this contract.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests.
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int

	// TLS is true when the response was served over a verified TLS session.
	TLS bool

	FetchedAt time.Time
}

// Config is the minimal set of options shared by all backends.
type Config struct {
	// Backend names the registered constructor to use; empty means "nethttp".
	Backend string

	// Timeout bounds a single fetch. Zero means the backend default.
	Timeout time.Duration

	// MaxBodyBytes caps how much of the response body is read. Zero means
	// the backend default (2 MiB).
	MaxBodyBytes int64

	UserAgent string
}

const defaultMaxBodyBytes = 2 << 20
