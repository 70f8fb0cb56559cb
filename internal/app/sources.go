package app

import (
	"context"

	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/sources"
)

// The orchestrator depends on these contracts instead of the concrete source
// clients so tests can script each source independently.

type PageFetcher interface {
	Fetch(ctx context.Context, canonicalURL, domain string) (*sources.PageResult, error)
}

type GeoLookup interface {
	Lookup(ctx context.Context, host string) (*model.Hosting, error)
}

type PerformanceAuditor interface {
	Audit(ctx context.Context, target string) (*sources.PageSpeedResult, error)
}

type WhoisLookup interface {
	Lookup(ctx context.Context, domain string) (*sources.WhoisResult, error)
}

type TrafficEstimator interface {
	Estimate(ctx context.Context, domain string) (*model.Traffic, error)
}

type TechDetector interface {
	Detect(ctx context.Context, page *sources.PageResult) (*model.TechStack, error)
}

type StatusChecker interface {
	Check(ctx context.Context, target string) (*model.SiteStatus, string)
}

type Summarizer interface {
	Summarize(ctx context.Context, report *model.AnalysisResult) (*model.AISummary, error)
	CompareVerdict(ctx context.Context, a, b *model.AnalysisResult) (*model.ComparisonVerdict, error)
}

// Sources bundles every external data client the engine fans out to.
type Sources struct {
	Page    PageFetcher
	GeoIP   GeoLookup
	Speed   PerformanceAuditor
	Whois   WhoisLookup
	Traffic TrafficEstimator
	Tech    TechDetector
	Status  StatusChecker
}
