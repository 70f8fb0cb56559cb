package model

import "time"

// Overview is the minimal, always-present identity of an analyzed site.
// URL and Domain are derived from the input URL before any network call and
// are the cache/history identity for a report.
type Overview struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	HTMLContent string `json:"htmlContent,omitempty"`
}

// DeviceMetrics holds the performance audit output for one device class.
// PerformanceScore is normalized to [0..100]; the vitals keep the audit's
// native units (milliseconds, unitless CLS).
type DeviceMetrics struct {
	PerformanceScore       int     `json:"performanceScore"`
	FirstContentfulPaint   float64 `json:"firstContentfulPaint,omitempty"`
	LargestContentfulPaint float64 `json:"largestContentfulPaint,omitempty"`
	CumulativeLayoutShift  float64 `json:"cumulativeLayoutShift,omitempty"`
	TotalBlockingTime      float64 `json:"totalBlockingTime,omitempty"`
	SpeedIndex             float64 `json:"speedIndex,omitempty"`

	// Audits are the raw 0..1 audit scores keyed by audit id. A nil entry
	// means the audit ran but produced no score.
	Audits map[string]*float64 `json:"audits,omitempty"`
}

// Performance holds per-device audit results. Absent until the full pass
// completes.
type Performance struct {
	Mobile  *DeviceMetrics `json:"mobile,omitempty"`
	Desktop *DeviceMetrics `json:"desktop,omitempty"`
}

// Security aggregates transport and header checks.
type Security struct {
	IsSecure        bool            `json:"isSecure"`
	SecurityHeaders map[string]bool `json:"securityHeaders,omitempty"`

	// Audits are completed security audits contributing their own 0..1 score.
	Audits map[string]*float64 `json:"audits,omitempty"`

	// SecurityScore is the derived [0..100] score. Nil means not yet computed.
	SecurityScore *int `json:"securityScore,omitempty"`

	SSLGrade     string `json:"sslGrade,omitempty"`
	DomainExpiry string `json:"domainExpiry,omitempty"`
}

// Metadata holds discoverability signals extracted from the page and probes.
type Metadata struct {
	OpenGraphTags map[string]string `json:"openGraphTags,omitempty"`
	HasRobotsTxt  bool              `json:"hasRobotsTxt"`
	HasSitemapXML bool              `json:"hasSitemapXml"`
}

// Hosting describes where the site is served from.
type Hosting struct {
	IP      string `json:"ip,omitempty"`
	ISP     string `json:"isp,omitempty"`
	Country string `json:"country,omitempty"`
}

// AISummary is the LLM-produced report section. Either the content fields or
// Error is set, never both.
type AISummary struct {
	Summary   string   `json:"summary,omitempty"`
	Strengths []string `json:"strengths,omitempty"`
	Concerns  []string `json:"concerns,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Traffic is a coarse monthly-visit estimate.
type Traffic struct {
	MonthlyVisits int64  `json:"monthlyVisits"`
	Source        string `json:"source,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Technology is one detected stack component.
type Technology struct {
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	Version    string `json:"version,omitempty"`
	DetectedBy string `json:"detectedBy,omitempty"`
}

// TechStack is the detected technology list for a site.
type TechStack struct {
	Technologies []Technology `json:"technologies,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// SiteStatus is the availability/TLS check result. The documented fallback
// when the check fails outright is {IsOnline:false}.
type SiteStatus struct {
	IsOnline   bool   `json:"isOnline"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ContentDrift summarizes how much the page body changed since the previous
// analysis of the same URL.
type ContentDrift struct {
	ChangedChars int     `json:"changedChars"`
	TotalChars   int     `json:"totalChars"`
	Ratio        float64 `json:"ratio"`
}

// AnalysisResult is the unified report for one URL.
//
// The report transitions fast -> full: after the fast pass only Overview,
// Security, Metadata, Hosting and Headers may be populated; the full pass
// fills Performance, AISummary, Traffic, TechStack and Status, each of which
// fails independently. Partial is true whenever any contributing source
// failed or was skipped, including optional enrichments — downstream
// consumers must be able to detect degraded reports.
type AnalysisResult struct {
	ID       string `json:"id"`
	Overview Overview `json:"overview"`

	Performance *Performance `json:"performance,omitempty"`
	Security    *Security    `json:"security,omitempty"`
	Metadata    *Metadata    `json:"metadata,omitempty"`
	Hosting     *Hosting     `json:"hosting,omitempty"`

	// Headers is the raw response header map, keys lowercased.
	Headers map[string]string `json:"headers,omitempty"`

	AISummary *AISummary  `json:"aiSummary,omitempty"`
	Traffic   *Traffic    `json:"traffic,omitempty"`
	TechStack *TechStack  `json:"techStack,omitempty"`
	Status    *SiteStatus `json:"status,omitempty"`

	// OverallScore averages every scorable audit across sections. Nil when
	// no audit produced a score.
	OverallScore *int `json:"overallScore,omitempty"`

	// Changes is only set on re-analysis when a previous report was cached.
	Changes *ContentDrift `json:"changes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	Partial   bool      `json:"partial"`
	Error     string    `json:"error,omitempty"`
}

// ComparisonVerdict is the AI-generated comparative summary for two sites.
// Winner is one of the two hostnames or "Tie".
type ComparisonVerdict struct {
	Title     string `json:"title"`
	Narrative string `json:"narrative"`
	Winner    string `json:"winner"`
}

// ComparisonResult pairs two reports with a verdict. Either side may carry a
// top-level Error when its pipeline failed entirely; the verdict is only
// produced when both sides succeeded.
type ComparisonResult struct {
	A       *AnalysisResult    `json:"a"`
	B       *AnalysisResult    `json:"b"`
	Verdict *ComparisonVerdict `json:"verdict,omitempty"`
	Error   string             `json:"error,omitempty"`
}
