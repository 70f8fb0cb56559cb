// Package scores holds the pure score calculators. No I/O, no state: every
// function derives a normalized score from whatever audit data is present,
// and a source's absence never makes them fail — it only lowers coverage.
package scores

import (
	"math"

	"github.com/raysh454/sitelens/internal/model"
)

// SecurityScore derives the [0..100] security score from discrete checks:
// SSL contributes one point, each present security header one point, and each
// completed security audit its own 0..1 score.
//
// When nothing was evaluable the result is 0, not nil. Unknown deliberately
// counts as failing here, while OverallScore returns nil in the same
// situation; the asymmetry matches observed upstream behavior and is kept
// on purpose. Do not "fix" one to match the other.
func SecurityScore(sec *model.Security) int {
	if sec == nil {
		return 0
	}

	var possible, earned float64

	// SSL check is always evaluable once a Security section exists.
	possible++
	if sec.IsSecure {
		earned++
	}

	for _, present := range sec.SecurityHeaders {
		possible++
		if present {
			earned++
		}
	}

	for _, score := range sec.Audits {
		if score == nil {
			continue
		}
		possible++
		earned += clamp01(*score)
	}

	if possible == 0 {
		return 0
	}
	return int(math.Round(100 * earned / possible))
}

// OverallScore flattens all audit groups (performance, security,
// diagnostics), averages every non-nil 0..1 audit score and scales to
// [0..100]. It returns nil, not 0, when no audit produced a score.
func OverallScore(groups ...map[string]*float64) *int {
	var sum float64
	var count int

	for _, group := range groups {
		for _, score := range group {
			if score == nil {
				continue
			}
			sum += clamp01(*score)
			count++
		}
	}

	if count == 0 {
		return nil
	}
	v := int(math.Round(100 * sum / float64(count)))
	return &v
}

// AuditGroups collects every scorable audit map from a report for
// OverallScore.
func AuditGroups(r *model.AnalysisResult) []map[string]*float64 {
	var groups []map[string]*float64
	if r.Performance != nil {
		if r.Performance.Mobile != nil {
			groups = append(groups, r.Performance.Mobile.Audits)
		}
		if r.Performance.Desktop != nil {
			groups = append(groups, r.Performance.Desktop.Audits)
		}
	}
	if r.Security != nil {
		groups = append(groups, r.Security.Audits)
	}
	return groups
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
