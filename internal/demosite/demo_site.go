// Package demosite runs a self-contained upstream for demoing the analyzer
// without network access: a sample site plus stand-ins for the PageSpeed,
// GeoIP, WHOIS and chat-completion services.
package demosite

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DemoSite is a simple HTTP server exposing a sample website and fake
// provider endpoints that mimic the external services the analyzer calls.
type DemoSite struct {
	cfg     Config
	version int
	mu      sync.RWMutex
}

// NewDemoSite creates a new demo site instance.
func NewDemoSite(cfg Config) *DemoSite {
	if cfg.InitialVersion < 1 {
		cfg.InitialVersion = 1
	}
	return &DemoSite{cfg: cfg, version: cfg.InitialVersion}
}

// Start starts the demo site.
func (s *DemoSite) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo site starting on http://localhost%s\n", addr)
	fmt.Printf("Switch content versions at http://localhost%s/demo/set-version?v=2\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the demo site's routes; exposed so tests can mount it on
// an httptest server.
func (s *DemoSite) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.pageHandler)
	mux.HandleFunc("/robots.txt", s.robotsHandler)
	mux.HandleFunc("/sitemap.xml", s.sitemapHandler)

	mux.HandleFunc("/demo/set-version", s.setVersionHandler)

	// Provider stand-ins
	mux.HandleFunc("/pagespeedonline/v5/runPagespeed", s.pagespeedHandler)
	mux.HandleFunc("/json/", s.geoipHandler)
	mux.HandleFunc("/whoisserver/WhoisService", s.whoisHandler)
	mux.HandleFunc("/v1/chat/completions", s.chatHandler)

	return mux
}

var pageVersions = map[int]string{
	1: `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Demo Shop</title>
<meta name="description" content="A small demo storefront.">
<meta property="og:title" content="Demo Shop">
<meta property="og:image" content="/static/banner.png">
<link rel="icon" href="/favicon.ico">
<script src="/static/jquery.min.js"></script>
</head>
<body><h1>Welcome to Demo Shop</h1><p>Hand-picked goods since 2019.</p></body>
</html>`,
	2: `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Demo Shop - Summer Sale</title>
<meta name="description" content="A small demo storefront, now with a sale.">
<meta property="og:title" content="Demo Shop Summer Sale">
<link rel="icon" href="/favicon.ico">
</head>
<body><h1>Summer Sale!</h1><p>Everything must go. Hand-picked goods since 2019.</p></body>
</html>`,
}

func (s *DemoSite) pageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()

	body, ok := pageVersions[version]
	if !ok {
		body = pageVersions[1]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Server", "nginx/1.25.3")
	fmt.Fprint(w, body)
}

func (s *DemoSite) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *\nAllow: /")
}

func (s *DemoSite) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintln(w, `<?xml version="1.0" encoding="UTF-8"?><urlset></urlset>`)
}

func (s *DemoSite) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.Atoi(r.URL.Query().Get("v"))
	if err != nil || v < 1 {
		http.Error(w, "invalid version", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.version = v
	s.mu.Unlock()

	fmt.Fprintf(w, "version set to %d\n", v)
}

// pagespeedHandler mimics the PageSpeed Insights v5 response shape, returning
// slightly different numbers per strategy.
func (s *DemoSite) pagespeedHandler(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	score := 0.92
	if strategy == "mobile" {
		score = 0.78
	}

	resp := map[string]any{
		"lighthouseResult": map[string]any{
			"categories": map[string]any{
				"performance": map[string]any{"score": score},
			},
			"audits": map[string]any{
				"first-contentful-paint":   map[string]any{"score": score, "displayValue": "1.2 s"},
				"largest-contentful-paint": map[string]any{"score": score, "displayValue": "2.1 s"},
				"cumulative-layout-shift":  map[string]any{"score": 0.99, "displayValue": "0.01"},
				"total-blocking-time":      map[string]any{"score": score, "displayValue": "150 ms"},
				"speed-index":              map[string]any{"score": score, "displayValue": "2.4 s"},
			},
		},
	}
	writeJSON(w, resp)
}

// geoipHandler mimics the ip-api.com JSON endpoint.
func (s *DemoSite) geoipHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "success",
		"country": "Netherlands",
		"isp":     "Demo Hosting BV",
		"query":   "203.0.113.7",
	})
}

// whoisHandler mimics the WhoisXML API response.
func (s *DemoSite) whoisHandler(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domainName")
	writeJSON(w, map[string]any{
		"WhoisRecord": map[string]any{
			"domainName":    domain,
			"registrarName": "Demo Registrar Inc.",
			"createdDate":   "2019-03-14T00:00:00Z",
			"expiresDate":   time.Now().AddDate(1, 0, 0).UTC().Format(time.RFC3339),
		},
	})
}

// chatHandler mimics an OpenAI-compatible chat completion endpoint. It always
// returns a fixed summary payload as the assistant message.
func (s *DemoSite) chatHandler(w http.ResponseWriter, r *http.Request) {
	content := `{"summary":"A small storefront with solid headers and average performance.","strengths":["Secure headers","Fast server responses"],"concerns":["No content security policy"]}`

	writeJSON(w, map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
