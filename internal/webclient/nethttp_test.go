package webclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raysh454/sitelens/internal/logging"
)

func TestNetHTTPGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	wc, err := NewNetHTTPClient(Config{}, logging.NoopLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	resp, err := wc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.Headers.Get("X-Test") != "yes" {
		t.Errorf("headers = %v", resp.Headers)
	}
	if resp.TLS {
		t.Error("plain http marked TLS")
	}
	if resp.FetchedAt.IsZero() {
		t.Error("fetchedAt not set")
	}
}

func TestNetHTTPBodyCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	wc, err := NewNetHTTPClient(Config{MaxBodyBytes: 10}, logging.NoopLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	resp, err := wc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Body) != 10 {
		t.Errorf("body length = %d, want capped at 10", len(resp.Body))
	}
}

func TestNetHTTPUserAgent(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	wc, err := NewNetHTTPClient(Config{UserAgent: "sitelens-test/1.0"}, logging.NoopLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	if _, err := wc.Get(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if seen != "sitelens-test/1.0" {
		t.Errorf("user-agent = %q", seen)
	}

	// An explicit header on the request wins.
	req := &Request{URL: srv.URL, Headers: http.Header{"User-Agent": []string{"custom/2"}}}
	if _, err := wc.Do(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if seen != "custom/2" {
		t.Errorf("user-agent = %q", seen)
	}
}

func TestNetHTTPNilRequest(t *testing.T) {
	t.Parallel()

	wc, err := NewNetHTTPClient(Config{}, logging.NoopLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	if _, err := wc.Do(context.Background(), nil); err == nil {
		t.Fatal("nil request accepted")
	}
}
