package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/utils"
	"github.com/raysh454/sitelens/internal/webclient"
)

// securityHeaders are the response headers counted as discrete security
// checks. Presence of each contributes one point to the security score.
var securityHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-content-type-options",
	"x-frame-options",
	"referrer-policy",
	"permissions-policy",
}

// PageResult is everything the raw page fetch yields for the fast pass:
// extracted overview fields, normalized headers and the light checks that
// need no further network calls.
type PageResult struct {
	Overview        model.Overview
	Headers         map[string]string
	SecurityHeaders map[string]bool
	IsSecure        bool
	StatusCode      int
	OpenGraphTags   map[string]string
	HasRobotsTxt    bool
	HasSitemapXML   bool
}

// PageClient fetches the target page through the configured webclient backend
// and extracts the overview with goquery. It also probes robots.txt and
// sitemap.xml on the same origin.
type PageClient struct {
	wc      webclient.WebClient
	timeout time.Duration
	logger  logging.Logger
}

func NewPageClient(cfg config.SourcesConfig, wc webclient.WebClient, logger logging.Logger) *PageClient {
	timeout := cfg.PageTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &PageClient{
		wc:      wc,
		timeout: timeout,
		logger:  logger.With(logging.Field{Key: "component", Value: "source-page"}),
	}
}

// Fetch retrieves and parses the page. Probe failures (robots/sitemap) are
// not errors; only a failed or non-2xx main document fetch is.
func (pc *PageClient) Fetch(ctx context.Context, canonicalURL, domain string) (*PageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	resp, err := pc.wc.Get(ctx, canonicalURL)
	if err != nil {
		return nil, newError("page", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError("page", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	result := &PageResult{
		Overview: model.Overview{
			URL:         canonicalURL,
			Domain:      domain,
			HTMLContent: string(resp.Body),
		},
		Headers:         normalizeHeaders(resp.Headers),
		SecurityHeaders: make(map[string]bool, len(securityHeaders)),
		IsSecure:        resp.TLS || strings.HasPrefix(canonicalURL, "https://"),
		StatusCode:      resp.StatusCode,
		OpenGraphTags:   make(map[string]string),
	}
	for _, h := range securityHeaders {
		_, present := result.Headers[h]
		result.SecurityHeaders[h] = present
	}

	pc.extract(resp.Body, result)
	pc.probe(ctx, canonicalURL, result)

	return result, nil
}

func (pc *PageClient) extract(body []byte, result *PageResult) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		pc.logger.Warn("parsing page html",
			logging.Field{Key: "url", Value: result.Overview.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	result.Overview.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		result.Overview.Description = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		result.Overview.Language = strings.TrimSpace(lang)
	}
	if href, ok := doc.Find(`link[rel~="icon"]`).First().Attr("href"); ok {
		result.Overview.Favicon = strings.TrimSpace(href)
	}

	doc.Find(`meta[property^="og:"]`).Each(func(_ int, sel *goquery.Selection) {
		prop, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		if prop != "" && content != "" {
			result.OpenGraphTags[prop] = content
		}
	})

	// Open Graph fills overview gaps when the plain tags are missing.
	if result.Overview.Title == "" {
		result.Overview.Title = result.OpenGraphTags["og:title"]
	}
	if result.Overview.Description == "" {
		result.Overview.Description = result.OpenGraphTags["og:description"]
	}
}

func (pc *PageClient) probe(ctx context.Context, canonicalURL string, result *PageResult) {
	origin, err := utils.Origin(canonicalURL)
	if err != nil {
		return
	}
	result.HasRobotsTxt = pc.exists(ctx, origin+"/robots.txt")
	result.HasSitemapXML = pc.exists(ctx, origin+"/sitemap.xml")
}

func (pc *PageClient) exists(ctx context.Context, url string) bool {
	resp, err := pc.wc.Get(ctx, url)
	if err != nil {
		return false
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func normalizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[strings.ToLower(k)] = vs[0]
		}
	}
	return out
}
