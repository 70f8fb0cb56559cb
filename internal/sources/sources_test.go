package sources_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/sources"
	"github.com/raysh454/sitelens/internal/testutil"
)

// ─── GeoIP ─────────────────────────────────────────────────────────────

func TestGeoIPLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/example.com") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status": "success", "country": "Germany", "isp": "Hetzner", "query": "203.0.113.9",
		})
	}))
	defer srv.Close()

	gc := sources.NewGeoIPClient(config.SourcesConfig{GeoIPEndpoint: srv.URL}, srv.Client(), &testutil.DummyLogger{})
	hosting, err := gc.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if hosting.Country != "Germany" || hosting.ISP != "Hetzner" || hosting.IP != "203.0.113.9" {
		t.Errorf("hosting = %+v", hosting)
	}
}

func TestGeoIPLookupProviderFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": "invalid query"})
	}))
	defer srv.Close()

	gc := sources.NewGeoIPClient(config.SourcesConfig{GeoIPEndpoint: srv.URL}, srv.Client(), &testutil.DummyLogger{})
	if _, err := gc.Lookup(context.Background(), "???"); err == nil {
		t.Fatal("provider failure did not error")
	}
}

// ─── WHOIS ─────────────────────────────────────────────────────────────

func TestWhoisLookupMockWithoutKey(t *testing.T) {
	t.Parallel()

	wc := sources.NewWhoisClient(config.SourcesConfig{}, nil, &testutil.DummyLogger{})
	res, err := wc.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Record.DomainName != "example.com" {
		t.Errorf("domainName = %q", res.Record.DomainName)
	}
	if !strings.Contains(res.Record.Registrar, "Mock") {
		t.Errorf("registrar = %q, want a mock marker", res.Record.Registrar)
	}
	if !res.Mocked {
		t.Error("keyless lookup not flagged as mocked")
	}
}

func TestWhoisLookupParsesRecord(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "k123" {
			t.Errorf("apiKey not forwarded: %q", r.URL.Query().Get("apiKey"))
		}
		fmt.Fprint(w, `{"WhoisRecord":{
			"domainName":"example.com",
			"registrarName":"Example Registrar",
			"createdDate":"2019-01-01T00:00:00Z",
			"expiresDate":"2027-01-01T00:00:00Z",
			"status":"clientTransferProhibited",
			"nameServers":{"hostNames":["ns1.example.com","ns2.example.com"]}
		}}`)
	}))
	defer srv.Close()

	wc := sources.NewWhoisClient(config.SourcesConfig{WhoisEndpoint: srv.URL, WhoisAPIKey: "k123"}, srv.Client(), &testutil.DummyLogger{})
	res, err := wc.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Mocked {
		t.Error("real lookup flagged as mocked")
	}
	rec := res.Record
	if rec.Registrar != "Example Registrar" {
		t.Errorf("registrar = %q", rec.Registrar)
	}
	if rec.ExpiresDate != "2027-01-01T00:00:00Z" {
		t.Errorf("expiresDate = %q", rec.ExpiresDate)
	}
	if len(rec.NameServers) != 2 {
		t.Errorf("nameServers = %v", rec.NameServers)
	}
	if len(rec.Status) != 1 || rec.Status[0] != "clientTransferProhibited" {
		t.Errorf("status = %v", rec.Status)
	}
}

func TestWhoisLookupProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ErrorMessage":"Insufficient credits for account abc, apiKey k123"}`)
	}))
	defer srv.Close()

	wc := sources.NewWhoisClient(config.SourcesConfig{WhoisEndpoint: srv.URL, WhoisAPIKey: "k123"}, srv.Client(), &testutil.DummyLogger{})
	_, err := wc.Lookup(context.Background(), "example.com")
	if err == nil {
		t.Fatal("provider error did not surface")
	}
	if got := sources.Sanitize(err); strings.Contains(got, "k123") || strings.Contains(strings.ToLower(got), "credit") {
		t.Errorf("sanitized message still leaks provider details: %q", got)
	}
}

// ─── Status ────────────────────────────────────────────────────────────

func TestStatusCheckOnline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := sources.NewStatusClient(config.SourcesConfig{}, srv.Client(), &testutil.DummyLogger{})
	status, grade := sc.Check(context.Background(), srv.URL)
	if !status.IsOnline || status.StatusCode != http.StatusOK {
		t.Errorf("status = %+v", status)
	}
	// Plain HTTP has no TLS session to grade.
	if grade != "" {
		t.Errorf("grade = %q for plain http", grade)
	}
}

func TestStatusCheckTLSGrade(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := sources.NewStatusClient(config.SourcesConfig{}, srv.Client(), &testutil.DummyLogger{})
	status, grade := sc.Check(context.Background(), srv.URL)
	if !status.IsOnline {
		t.Errorf("status = %+v", status)
	}
	if grade == "" {
		t.Error("no grade for a TLS session")
	}
}

func TestStatusCheckHeadFallsBackToGet(t *testing.T) {
	t.Parallel()

	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := sources.NewStatusClient(config.SourcesConfig{}, srv.Client(), &testutil.DummyLogger{})
	status, _ := sc.Check(context.Background(), srv.URL)
	if !sawGet {
		t.Error("no GET fallback after HEAD was refused")
	}
	if !status.IsOnline {
		t.Errorf("status = %+v", status)
	}
}

type closeRecordingBody struct {
	io.ReadCloser
	closed *bool
}

func (b closeRecordingBody) Close() error {
	*b.closed = true
	return b.ReadCloser.Close()
}

// headCloseTransport wraps HEAD response bodies so a test can verify they get
// closed.
type headCloseTransport struct {
	base       http.RoundTripper
	headClosed *bool
}

func (t headCloseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && req.Method == http.MethodHead {
		resp.Body = closeRecordingBody{resp.Body, t.headClosed}
	}
	return resp, err
}

func TestStatusCheckClosesRefusedHeadBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var headClosed bool
	client := &http.Client{Transport: headCloseTransport{
		base:       srv.Client().Transport,
		headClosed: &headClosed,
	}}

	sc := sources.NewStatusClient(config.SourcesConfig{}, client, &testutil.DummyLogger{})
	status, _ := sc.Check(context.Background(), srv.URL)
	if !status.IsOnline {
		t.Errorf("status = %+v", status)
	}
	if !headClosed {
		t.Error("refused HEAD response body never closed")
	}
}

func TestStatusCheckDeadSite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	sc := sources.NewStatusClient(config.SourcesConfig{}, nil, &testutil.DummyLogger{})
	status, grade := sc.Check(context.Background(), srv.URL)
	if status.IsOnline {
		t.Error("dead site reported online")
	}
	if status.Error == "" {
		t.Error("no error message for a dead site")
	}
	if grade != "" {
		t.Errorf("grade = %q for a dead site", grade)
	}
}

func TestStatusCheck5xxIsOffline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sc := sources.NewStatusClient(config.SourcesConfig{}, srv.Client(), &testutil.DummyLogger{})
	status, _ := sc.Check(context.Background(), srv.URL)
	if status.IsOnline {
		t.Error("5xx reported online")
	}
	if status.StatusCode != http.StatusBadGateway {
		t.Errorf("statusCode = %d", status.StatusCode)
	}
}

// ─── PageSpeed ─────────────────────────────────────────────────────────

func TestPageSpeedMockWithoutKey(t *testing.T) {
	t.Parallel()

	pc := sources.NewPageSpeedClient(config.SourcesConfig{}, nil, &testutil.DummyLogger{})
	res, err := pc.Audit(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !res.Mocked {
		t.Error("keyless audit not flagged as mocked")
	}
	if res.Performance == nil || res.Performance.Mobile == nil || res.Performance.Desktop == nil {
		t.Fatalf("performance = %+v", res.Performance)
	}
	if s := res.Performance.Mobile.PerformanceScore; s < 0 || s > 100 {
		t.Errorf("mobile score out of range: %d", s)
	}

	// Determinism: same URL, same numbers.
	again, _ := pc.Audit(context.Background(), "https://example.com/")
	if again.Performance.Mobile.PerformanceScore != res.Performance.Mobile.PerformanceScore {
		t.Error("mock metrics not deterministic")
	}
}

func TestPageSpeedParsesBothStrategies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		score := 0.9
		if r.URL.Query().Get("strategy") == "mobile" {
			score = 0.7
		}
		json.NewEncoder(w).Encode(map[string]any{
			"lighthouseResult": map[string]any{
				"categories": map[string]any{"performance": map[string]any{"score": score}},
				"audits": map[string]any{
					"first-contentful-paint": map[string]any{"score": score, "numericValue": 1234.0},
				},
			},
		})
	}))
	defer srv.Close()

	pc := sources.NewPageSpeedClient(config.SourcesConfig{PageSpeedEndpoint: srv.URL, PageSpeedAPIKey: "k"}, srv.Client(), &testutil.DummyLogger{})
	res, err := pc.Audit(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.Mocked {
		t.Error("real audit flagged as mocked")
	}
	if res.Performance.Mobile.PerformanceScore != 70 {
		t.Errorf("mobile score = %d", res.Performance.Mobile.PerformanceScore)
	}
	if res.Performance.Desktop.PerformanceScore != 90 {
		t.Errorf("desktop score = %d", res.Performance.Desktop.PerformanceScore)
	}
	if res.Performance.Mobile.FirstContentfulPaint != 1234.0 {
		t.Errorf("fcp = %v", res.Performance.Mobile.FirstContentfulPaint)
	}
}

func TestPageSpeedOneStrategyFailing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("strategy") == "desktop" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"lighthouseResult": map[string]any{
				"categories": map[string]any{"performance": map[string]any{"score": 0.8}},
			},
		})
	}))
	defer srv.Close()

	pc := sources.NewPageSpeedClient(config.SourcesConfig{PageSpeedEndpoint: srv.URL, PageSpeedAPIKey: "k"}, srv.Client(), &testutil.DummyLogger{})
	res, err := pc.Audit(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if res.Performance.Mobile == nil {
		t.Error("surviving strategy lost")
	}
	if res.Performance.Desktop != nil {
		t.Error("failed strategy produced metrics")
	}
}

func TestPageSpeedAllStrategiesFailing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pc := sources.NewPageSpeedClient(config.SourcesConfig{PageSpeedEndpoint: srv.URL, PageSpeedAPIKey: "k"}, srv.Client(), &testutil.DummyLogger{})
	if _, err := pc.Audit(context.Background(), "https://example.com/"); err == nil {
		t.Fatal("both strategies failing did not error")
	}
}

// ─── Tech stack ────────────────────────────────────────────────────────

func TestTechStackDetect(t *testing.T) {
	t.Parallel()

	page := &sources.PageResult{
		Overview: model.Overview{
			URL: "https://example.com/",
			HTMLContent: `<html><head>
<meta name="generator" content="WordPress 6.4">
<script src="/wp-content/themes/x/app.js"></script>
<script src="https://www.googletagmanager.com/gtag/js"></script>
</head><body></body></html>`,
		},
		Headers: map[string]string{
			"server":       "nginx/1.25",
			"x-powered-by": "PHP/8.2",
		},
	}

	tc := sources.NewTechStackClient(&testutil.DummyLogger{})
	stack, err := tc.Detect(context.Background(), page)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	names := map[string]model.Technology{}
	for _, tech := range stack.Technologies {
		names[tech.Name] = tech
	}
	for _, want := range []string{"Nginx", "PHP", "WordPress", "Google Analytics"} {
		if _, ok := names[want]; !ok {
			t.Errorf("missing %s in %v", want, stack.Technologies)
		}
	}
	// The generator tag and the wp-content needle both match; there must be
	// exactly one WordPress entry.
	count := 0
	for _, tech := range stack.Technologies {
		if tech.Name == "WordPress" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("WordPress detected %d times", count)
	}
}

func TestTechStackDetectNilPage(t *testing.T) {
	t.Parallel()

	tc := sources.NewTechStackClient(&testutil.DummyLogger{})
	stack, err := tc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect(nil): %v", err)
	}
	if len(stack.Technologies) != 0 {
		t.Errorf("technologies = %v", stack.Technologies)
	}
}

// ─── Traffic ───────────────────────────────────────────────────────────

func TestTrafficEstimateDeterministic(t *testing.T) {
	t.Parallel()

	tc := sources.NewTrafficClient(&testutil.DummyLogger{})
	a, err := tc.Estimate(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := tc.Estimate(context.Background(), "example.com")
	if a.MonthlyVisits != b.MonthlyVisits {
		t.Error("estimate not deterministic")
	}
	if a.Source != "estimate" {
		t.Errorf("source = %q", a.Source)
	}
	if a.MonthlyVisits < 1000 {
		t.Errorf("monthlyVisits = %d", a.MonthlyVisits)
	}
}

// ─── Error sanitization ────────────────────────────────────────────────

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"credential leak", fmt.Errorf("bad credentials for user admin"), "lookup service temporarily unavailable"},
		{"credit leak", fmt.Errorf("not enough Credits left"), "lookup service temporarily unavailable"},
		{"api key leak", fmt.Errorf("invalid API key provided"), "lookup service temporarily unavailable"},
		{"plain error", fmt.Errorf("connection refused"), "connection refused"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := sources.Sanitize(tc.err); got != tc.want {
				t.Errorf("Sanitize = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizeTimeout(t *testing.T) {
	t.Parallel()

	// Timeouts sanitize to a fixed message; exercised through a real source
	// error by fetching from a server that never answers within the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 1)
	defer cancel()
	<-ctx.Done()

	gc := sources.NewGeoIPClient(config.SourcesConfig{GeoIPEndpoint: "http://192.0.2.1"}, nil, &testutil.DummyLogger{})
	_, err := gc.Lookup(ctx, "example.com")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := sources.Sanitize(err); got != "lookup timed out" {
		t.Errorf("Sanitize = %q, want %q", got, "lookup timed out")
	}
}
