package app

import "github.com/raysh454/sitelens/internal/model"

// fullPayload carries everything the full pass produced. Every field is
// optional: a nil/empty field means the matching source failed or was
// skipped, and the fast-pass value (or default) stands.
type fullPayload struct {
	Performance *model.Performance
	PerfMocked  bool

	Summary      *model.AISummary
	SummaryError string

	Traffic *model.Traffic
	Tech    *model.TechStack

	Status      *model.SiteStatus
	SSLGrade    string
	Whois       *model.WhoisRecord
	WhoisMocked bool
}

// mergeFull applies the full-pass payload onto a fast-pass report, in place.
//
// Precedence is explicit and field-by-field: full pass > fast pass > default.
// Full-pass fields overwrite only when present and non-empty, so merging the
// same payload twice is equivalent to merging it once, and fields only the
// fast pass produced are never lost.
func mergeFull(report *model.AnalysisResult, full fullPayload) {
	if full.Performance != nil {
		report.Performance = full.Performance
	}

	switch {
	case full.Summary != nil:
		report.AISummary = full.Summary
	case full.SummaryError != "":
		report.AISummary = &model.AISummary{Error: full.SummaryError}
	}

	if full.Traffic != nil {
		report.Traffic = full.Traffic
	}
	if full.Tech != nil {
		report.TechStack = full.Tech
	}

	// The documented fallback for a failed status check is {IsOnline:false};
	// the status source already encodes that, so a nil here means the task
	// never ran at all.
	if full.Status != nil {
		report.Status = full.Status
	}

	if report.Security == nil {
		report.Security = &model.Security{}
	}
	if full.SSLGrade != "" {
		report.Security.SSLGrade = full.SSLGrade
	}
	if full.Whois != nil && full.Whois.ExpiresDate != "" {
		report.Security.DomainExpiry = full.Whois.ExpiresDate
	}
}
