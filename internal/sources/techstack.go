package sources

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// fingerprint is one header- or markup-based detection rule.
type fingerprint struct {
	name     string
	category string

	header      string // lowercased header name
	headerValue string // substring match within the header value, empty = presence
	htmlNeedle  string // substring match within the raw HTML
	selector    string // goquery selector that must match at least once
}

var fingerprints = []fingerprint{
	{name: "Cloudflare", category: "CDN", header: "server", headerValue: "cloudflare"},
	{name: "Nginx", category: "Web Server", header: "server", headerValue: "nginx"},
	{name: "Apache", category: "Web Server", header: "server", headerValue: "apache"},
	{name: "Express", category: "Web Framework", header: "x-powered-by", headerValue: "express"},
	{name: "PHP", category: "Language", header: "x-powered-by", headerValue: "php"},
	{name: "ASP.NET", category: "Web Framework", header: "x-powered-by", headerValue: "asp.net"},
	{name: "Vercel", category: "Hosting", header: "x-vercel-id"},
	{name: "Netlify", category: "Hosting", header: "x-nf-request-id"},
	{name: "Next.js", category: "Web Framework", htmlNeedle: "/_next/"},
	{name: "React", category: "JavaScript Library", htmlNeedle: "data-reactroot"},
	{name: "Vue.js", category: "JavaScript Framework", htmlNeedle: "data-v-app"},
	{name: "jQuery", category: "JavaScript Library", htmlNeedle: "jquery"},
	{name: "WordPress", category: "CMS", htmlNeedle: "wp-content"},
	{name: "Google Analytics", category: "Analytics", htmlNeedle: "googletagmanager.com"},
	{name: "Bootstrap", category: "UI Framework", htmlNeedle: "bootstrap"},
}

// TechStackClient detects the technology stack from the already-fetched page:
// response headers, markup substrings and a generator meta tag. It performs
// no network I/O of its own.
type TechStackClient struct {
	logger logging.Logger
}

func NewTechStackClient(logger logging.Logger) *TechStackClient {
	return &TechStackClient{
		logger: logger.With(logging.Field{Key: "component", Value: "source-techstack"}),
	}
}

// Detect inspects the fast-pass page result. ctx is accepted for interface
// symmetry with the other sources; detection is purely local.
func (tc *TechStackClient) Detect(ctx context.Context, page *PageResult) (*model.TechStack, error) {
	if page == nil {
		return &model.TechStack{}, nil
	}
	_ = ctx

	html := strings.ToLower(page.Overview.HTMLContent)
	seen := make(map[string]bool)
	stack := &model.TechStack{}

	add := func(name, category, detectedBy string) {
		if seen[name] {
			return
		}
		seen[name] = true
		stack.Technologies = append(stack.Technologies, model.Technology{
			Name:       name,
			Category:   category,
			DetectedBy: detectedBy,
		})
	}

	for _, fp := range fingerprints {
		if fp.header != "" {
			if v, ok := page.Headers[fp.header]; ok {
				if fp.headerValue == "" || strings.Contains(strings.ToLower(v), fp.headerValue) {
					add(fp.name, fp.category, "headers")
				}
			}
		}
		if fp.htmlNeedle != "" && strings.Contains(html, fp.htmlNeedle) {
			add(fp.name, fp.category, "html")
		}
	}

	// The generator meta tag names its CMS outright.
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(page.Overview.HTMLContent))); err == nil {
		if gen, ok := doc.Find(`meta[name="generator"]`).First().Attr("content"); ok {
			gen = strings.TrimSpace(gen)
			if gen != "" {
				name, version, _ := strings.Cut(gen, " ")
				if !seen[name] {
					seen[name] = true
					stack.Technologies = append(stack.Technologies, model.Technology{
						Name:       name,
						Category:   "CMS",
						Version:    version,
						DetectedBy: "meta",
					})
				}
			}
		}
	}

	tc.logger.Debug("tech stack detected",
		logging.Field{Key: "url", Value: page.Overview.URL},
		logging.Field{Key: "count", Value: len(stack.Technologies)})

	return stack, nil
}
