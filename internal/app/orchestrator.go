package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raysh454/sitelens/internal/cache"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/scores"
	"github.com/raysh454/sitelens/internal/sources"
	"github.com/raysh454/sitelens/internal/utils"
)

// Engine error taxonomy. Validation failures are rejected before any network
// call; total failures mean even the minimum-viable fast pass produced
// nothing usable. Everything below that is absorbed into the report as a
// missing section plus Partial=true.
var (
	ErrInvalidURL   = errors.New("invalid url")
	ErrTotalFailure = errors.New("all fast-pass sources failed")
)

// History is the sink for completed analyses; nil disables recording.
type History interface {
	Record(ctx context.Context, report *model.AnalysisResult) error
}

// Orchestrator is the aggregation engine: it fans out to the external data
// sources, merges their partial results into one report and never lets a
// single source failure escape as an error.
type Orchestrator struct {
	store   cache.Cache
	srcs    Sources
	gateway Summarizer
	history History
	logger  logging.Logger

	// now is injectable for tests.
	now func() time.Time

	jobs *jobSet
}

// NewOrchestrator ties together cache, sources, AI gateway and history.
// gateway and history may be nil; the matching sections then degrade to
// their documented fallbacks.
func NewOrchestrator(store cache.Cache, srcs Sources, gateway Summarizer, history History, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		srcs:    srcs,
		gateway: gateway,
		history: history,
		logger:  logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		now:     time.Now,
		jobs:    newJobSet(),
	}
}

// FastAnalysis runs the minimal, low-latency pass: raw page fetch and IP
// lookup, concurrently, tolerating either failing. Only both failing is an
// error. The returned report always carries a non-empty Overview.Domain.
func (o *Orchestrator) FastAnalysis(ctx context.Context, rawURL string) (*model.AnalysisResult, error) {
	report, _, err := o.fastPass(ctx, rawURL)
	return report, err
}

// fastPass also returns the raw page result, which the full pass feeds into
// tech detection.
func (o *Orchestrator) fastPass(ctx context.Context, rawURL string) (*model.AnalysisResult, *sources.PageResult, error) {
	canonical, domain, err := utils.ValidateAnalysisURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	report := &model.AnalysisResult{
		ID:        uuid.New().String(),
		Overview:  model.Overview{URL: canonical, Domain: domain},
		CreatedAt: o.now().UTC(),
	}

	outcomes := Settle(ctx,
		Task{Name: "page", Run: func(ctx context.Context) (any, error) {
			return o.srcs.Page.Fetch(ctx, canonical, domain)
		}},
		Task{Name: "geoip", Run: func(ctx context.Context) (any, error) {
			return o.srcs.GeoIP.Lookup(ctx, domain)
		}},
	)

	var page *sources.PageResult
	anyOK := false
	for _, out := range outcomes {
		if out.Err != nil {
			o.logger.Warn("fast-pass source failed",
				logging.Field{Key: "source", Value: out.Name},
				logging.Field{Key: "url", Value: canonical},
				logging.Field{Key: "error", Value: out.Err.Error()})
			report.Partial = true
			continue
		}
		anyOK = true
		switch out.Name {
		case "page":
			page = out.Value.(*sources.PageResult)
			report.Overview = page.Overview
			report.Headers = page.Headers
			report.Security = &model.Security{
				IsSecure:        page.IsSecure,
				SecurityHeaders: page.SecurityHeaders,
			}
			report.Metadata = &model.Metadata{
				OpenGraphTags: page.OpenGraphTags,
				HasRobotsTxt:  page.HasRobotsTxt,
				HasSitemapXML: page.HasSitemapXML,
			}
		case "geoip":
			report.Hosting = out.Value.(*model.Hosting)
		}
	}

	if !anyOK {
		return nil, nil, fmt.Errorf("%w: %s", ErrTotalFailure, canonical)
	}

	if report.Security != nil {
		score := scores.SecurityScore(report.Security)
		report.Security.SecurityScore = &score
	}

	return report, page, nil
}

// FullAnalysis produces the complete report: cache check, fast pass, then
// the five enrichment calls fanned out concurrently, merged with explicit
// precedence, scores recomputed, and the result cached (24h TTL) when it is
// not an error. refresh bypasses the cache read and replaces the entry
// wholesale.
func (o *Orchestrator) FullAnalysis(ctx context.Context, rawURL string, refresh bool) (*model.AnalysisResult, error) {
	canonical, _, err := utils.ValidateAnalysisURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	key := cache.ReportKey(canonical)
	var previous *model.AnalysisResult
	if cached, ok := o.store.Get(key); ok {
		if report, ok := cached.(*model.AnalysisResult); ok {
			if !refresh {
				o.logger.Debug("report cache hit", logging.Field{Key: "url", Value: canonical})
				return report, nil
			}
			previous = report
		}
	}

	report, page, err := o.fastPass(ctx, canonical)
	if err != nil {
		return nil, err
	}

	full, failures := o.fullPass(ctx, report, page)
	mergeFull(report, full)
	// Mocked data means the real source was skipped, which counts the same
	// as a failure for the partial flag.
	if failures > 0 || full.PerfMocked || full.WhoisMocked {
		report.Partial = true
	}

	if report.Security != nil {
		score := scores.SecurityScore(report.Security)
		report.Security.SecurityScore = &score
	}
	report.OverallScore = scores.OverallScore(scores.AuditGroups(report)...)

	if previous != nil {
		report.Changes = computeDrift(previous.Overview.HTMLContent, report.Overview.HTMLContent)
	}

	if report.Error == "" {
		o.store.Set(key, report)
	}

	if o.history != nil {
		if err := o.history.Record(ctx, report); err != nil {
			o.logger.Warn("recording analysis",
				logging.Field{Key: "url", Value: canonical},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	o.logger.Info("analysis complete",
		logging.Field{Key: "url", Value: canonical},
		logging.Field{Key: "partial", Value: report.Partial})

	return report, nil
}

// fullPass fans out the five enrichment calls. Each failure is converted to
// its documented fallback; failures only count toward Partial.
func (o *Orchestrator) fullPass(ctx context.Context, fast *model.AnalysisResult, page *sources.PageResult) (fullPayload, int) {
	outcomes := Settle(ctx,
		Task{Name: "performance", Run: func(ctx context.Context) (any, error) {
			return o.srcs.Speed.Audit(ctx, fast.Overview.URL)
		}},
		Task{Name: "summary", Run: func(ctx context.Context) (any, error) {
			if o.gateway == nil {
				return nil, fmt.Errorf("ai gateway not configured")
			}
			return o.gateway.Summarize(ctx, fast)
		}},
		Task{Name: "traffic", Run: func(ctx context.Context) (any, error) {
			return o.srcs.Traffic.Estimate(ctx, fast.Overview.Domain)
		}},
		Task{Name: "techstack", Run: func(ctx context.Context) (any, error) {
			return o.srcs.Tech.Detect(ctx, page)
		}},
		Task{Name: "status", Run: func(ctx context.Context) (any, error) {
			status, grade := o.srcs.Status.Check(ctx, fast.Overview.URL)
			whois, err := o.srcs.Whois.Lookup(ctx, fast.Overview.Domain)
			if err != nil {
				// The status half already succeeded; keep it.
				return statusOutcome{Status: status, SSLGrade: grade}, err
			}
			return statusOutcome{
				Status:      status,
				SSLGrade:    grade,
				Whois:       whois.Record,
				WhoisMocked: whois.Mocked,
			}, nil
		}},
	)

	var full fullPayload
	failures := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failures++
			o.logger.Warn("full-pass source failed",
				logging.Field{Key: "source", Value: out.Name},
				logging.Field{Key: "url", Value: fast.Overview.URL},
				logging.Field{Key: "error", Value: out.Err.Error()})
			switch out.Name {
			case "summary":
				full.SummaryError = sources.Sanitize(out.Err)
			case "status":
				if so, ok := out.Value.(statusOutcome); ok {
					full.Status = so.Status
					full.SSLGrade = so.SSLGrade
				} else {
					full.Status = &model.SiteStatus{IsOnline: false}
				}
			}
			// performance, traffic and techstack stay absent on failure.
			continue
		}
		switch out.Name {
		case "performance":
			res := out.Value.(*sources.PageSpeedResult)
			full.Performance = res.Performance
			full.PerfMocked = res.Mocked
		case "summary":
			full.Summary = out.Value.(*model.AISummary)
		case "traffic":
			full.Traffic = out.Value.(*model.Traffic)
		case "techstack":
			full.Tech = out.Value.(*model.TechStack)
		case "status":
			so := out.Value.(statusOutcome)
			full.Status = so.Status
			full.SSLGrade = so.SSLGrade
			full.Whois = so.Whois
			full.WhoisMocked = so.WhoisMocked
		}
	}

	return full, failures
}

// statusOutcome bundles the combined domain/status check results.
type statusOutcome struct {
	Status      *model.SiteStatus
	SSLGrade    string
	Whois       *model.WhoisRecord
	WhoisMocked bool
}

// Compare runs the single-site pipeline for both URLs independently (one
// side failing does not block the other) and asks the AI gateway for a
// verdict only when both succeeded. Successful comparisons are cached.
func (o *Orchestrator) Compare(ctx context.Context, rawA, rawB string, refresh bool) (*model.ComparisonResult, error) {
	canonA, _, errA := utils.ValidateAnalysisURL(rawA)
	if errA != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, errA)
	}
	canonB, _, errB := utils.ValidateAnalysisURL(rawB)
	if errB != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, errB)
	}

	key := cache.ComparisonKey(canonA, canonB)
	if !refresh {
		if cached, ok := o.store.Get(key); ok {
			if cmp, ok := cached.(*model.ComparisonResult); ok {
				return cmp, nil
			}
		}
	}

	result := &model.ComparisonResult{}

	// errgroup for structure only: both sides always run to completion and
	// record their own outcome.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report, err := o.FullAnalysis(gctx, canonA, refresh)
		if err != nil {
			result.A = &model.AnalysisResult{
				Overview: model.Overview{URL: canonA},
				Error:    err.Error(),
			}
			return nil
		}
		result.A = report
		return nil
	})
	g.Go(func() error {
		report, err := o.FullAnalysis(gctx, canonB, refresh)
		if err != nil {
			result.B = &model.AnalysisResult{
				Overview: model.Overview{URL: canonB},
				Error:    err.Error(),
			}
			return nil
		}
		result.B = report
		return nil
	})
	_ = g.Wait()

	if result.A.Error != "" || result.B.Error != "" {
		result.Error = "comparison incomplete: one side could not be analyzed"
		return result, nil
	}

	if o.gateway != nil {
		verdict, err := o.gateway.CompareVerdict(ctx, result.A, result.B)
		if err != nil {
			o.logger.Warn("comparison verdict failed",
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			result.Verdict = verdict
		}
	}

	if result.Error == "" && result.Verdict != nil {
		o.store.Set(key, result)
	}

	return result, nil
}
