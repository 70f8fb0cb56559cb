package utils

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Errors
var (
	ErrEmptyURL      = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"empty url"}}
	ErrMissingHost   = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"missing host"}}
	ErrBadScheme     = &url.Error{Op: "validate", URL: "", Err: &errStr{"scheme must be http or https"}}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	StripTrailingSlash bool   // treat /a and /a/ the same by removing trailing slash (except root "/")
	DefaultScheme      string // if empty, require scheme in input; otherwise assume this scheme for schemeless URLs
}

// Canonicalize returns a deterministic canonical URL string or an error.
// It lowercases scheme/host, converts IDN hosts to punycode, drops default
// ports, credentials and fragments, cleans the path and sorts query params.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	// Preserve non-default port only
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") || port == "" {
		u.Host = host
	} else {
		u.Host = net.JoinHostPort(host, port)
	}

	u.User = nil
	u.Fragment = ""

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	if opts.StripTrailingSlash && len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
		if cleanPath == "" {
			cleanPath = "/"
		}
	}
	u.Path = cleanPath

	// Sort query keys and values for deterministic encoding
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}

// ValidateAnalysisURL parses and canonicalizes a user-supplied URL for
// analysis. Only http and https schemes are accepted; anything else is
// rejected before a single network call is made.
func ValidateAnalysisURL(raw string) (canonical string, domain string, err error) {
	canonical, err = Canonicalize(raw, CanonicalizeOptions{
		StripTrailingSlash: true,
		DefaultScheme:      "https",
	})
	if err != nil {
		return "", "", err
	}

	u, err := url.Parse(canonical)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("url %q: %w", raw, ErrBadScheme)
	}

	return canonical, u.Hostname(), nil
}

// Origin returns scheme://host for a canonical URL, used for robots.txt and
// sitemap.xml probes.
func Origin(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}
	return u.Scheme + "://" + u.Host, nil
}
