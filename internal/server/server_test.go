package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/sitelens/internal/app"
	"github.com/raysh454/sitelens/internal/cache"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/server"
	"github.com/raysh454/sitelens/internal/sources"
	"github.com/raysh454/sitelens/internal/testutil"
)

var (
	errFailed = errors.New("source down")
	errLeaky  = errors.New("insufficient credits for apiKey k123")
)

type fakeTracker struct {
	decision *model.TrackDecision
	err      error
}

func (f *fakeTracker) ShouldTrack(_ context.Context, event *model.VisitorEvent) (*model.TrackDecision, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

func newTestServer(t *testing.T, opts ...func(*serverParts)) *server.Server {
	t.Helper()

	parts := &serverParts{
		page: &testutil.StubPage{Result: &sources.PageResult{
			Overview: model.Overview{URL: "https://example.com/", Domain: "example.com", Title: "Example"},
		}},
		geoip:   &testutil.StubGeoIP{},
		whois:   &testutil.StubWhois{},
		tracker: &fakeTracker{decision: &model.TrackDecision{Tracked: true, Reason: "organic"}},
	}
	for _, opt := range opts {
		opt(parts)
	}

	srcs := app.Sources{
		Page:    parts.page,
		GeoIP:   parts.geoip,
		Speed:   &testutil.StubSpeed{},
		Whois:   parts.whois,
		Traffic: &testutil.StubTraffic{},
		Tech:    &testutil.StubTech{},
		Status:  &testutil.StubStatus{},
	}
	store := cache.NewMemory(time.Hour, nil)
	orch := app.NewOrchestrator(store, srcs, nil, nil, &testutil.DummyLogger{})

	return server.NewServer(server.Config{
		ListenAddr: ":0",
		Logger:     &testutil.DummyLogger{},
	}, orch, parts.whois, parts.tracker, nil)
}

type serverParts struct {
	page    *testutil.StubPage
	geoip   *testutil.StubGeoIP
	whois   *testutil.StubWhois
	tracker *fakeTracker
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestAnalyzeMissingURL(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/analyze", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAnalyzeInvalidURL(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/analyze?url=ftp%3A%2F%2Fexample.com", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeOK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/analyze?url=example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report model.AnalysisResult
	decodeJSON(t, rec, &report)
	if report.Overview.Title != "Example" {
		t.Errorf("title = %q", report.Overview.Title)
	}
	if report.Hosting == nil {
		t.Error("hosting missing")
	}
}

func TestAnalyzeTotalFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, func(p *serverParts) {
		p.page.Err = errFailed
		p.geoip.Err = errFailed
	})
	rec := doJSON(t, s, http.MethodGet, "/api/analyze?url=example.com", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCompareValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/compare", `{"urlA":"example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing urlB: status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/compare", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", rec.Code)
	}
}

func TestCompareOK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/compare", `{"urlA":"example.com","urlB":"example.org"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result model.ComparisonResult
	decodeJSON(t, rec, &result)
	if result.A == nil || result.B == nil {
		t.Error("missing comparison side")
	}
}

func TestTrackOK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/track",
		`{"ip":"198.51.100.7","timestamp":"2026-01-01T00:00:00Z","pathname":"/pricing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var decision model.TrackDecision
	decodeJSON(t, rec, &decision)
	if !decision.Tracked {
		t.Errorf("decision = %+v", decision)
	}
}

func TestTrackRequiresTimestamp(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/track", `{"ip":"198.51.100.7"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestWhoisOK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/whois?domainName=example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var record model.WhoisRecord
	decodeJSON(t, rec, &record)
	if record.DomainName != "example.com" {
		t.Errorf("domainName = %q", record.DomainName)
	}
}

func TestWhoisSanitizesProviderErrors(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, func(p *serverParts) {
		p.whois.Err = errLeaky
	})
	rec := doJSON(t, s, http.MethodGet, "/api/whois?domainName=example.com", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]string
	decodeJSON(t, rec, &body)
	if strings.Contains(strings.ToLower(body["error"]), "credit") {
		t.Errorf("provider details leaked: %q", body["error"])
	}
}

func TestWhoisMissingDomain(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/whois", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHistoryUnconfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rec = doJSON(t, s, http.MethodOptions, "/api/analyze", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
}
