package scores

import (
	"testing"

	"github.com/raysh454/sitelens/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestSecurityScoreNilSection(t *testing.T) {
	t.Parallel()

	if got := SecurityScore(nil); got != 0 {
		t.Errorf("SecurityScore(nil) = %d, want 0", got)
	}
}

func TestSecurityScoreSSLOnly(t *testing.T) {
	t.Parallel()

	if got := SecurityScore(&model.Security{IsSecure: true}); got != 100 {
		t.Errorf("secure, no headers = %d, want 100", got)
	}
	if got := SecurityScore(&model.Security{IsSecure: false}); got != 0 {
		t.Errorf("insecure, no headers = %d, want 0", got)
	}
}

func TestSecurityScoreHeaders(t *testing.T) {
	t.Parallel()

	sec := &model.Security{
		IsSecure: true,
		SecurityHeaders: map[string]bool{
			"strict-transport-security": true,
			"content-security-policy":   false,
			"x-frame-options":           true,
		},
	}
	// 3 of 4 points earned.
	if got := SecurityScore(sec); got != 75 {
		t.Errorf("SecurityScore = %d, want 75", got)
	}
}

func TestSecurityScoreAudits(t *testing.T) {
	t.Parallel()

	sec := &model.Security{
		IsSecure: true,
		Audits: map[string]*float64{
			"is-on-https": fp(1),
			"no-score":    nil, // must not count toward possible
			"csp-xss":     fp(0),
		},
	}
	// earned 2 of 3 evaluable points.
	if got := SecurityScore(sec); got != 67 {
		t.Errorf("SecurityScore = %d, want 67", got)
	}
}

func TestSecurityScoreMonotonic(t *testing.T) {
	t.Parallel()

	base := &model.Security{
		IsSecure:        false,
		SecurityHeaders: map[string]bool{"x-frame-options": false},
	}
	better := &model.Security{
		IsSecure:        true,
		SecurityHeaders: map[string]bool{"x-frame-options": false},
	}
	if SecurityScore(better) <= SecurityScore(base) {
		t.Error("adding a passing check did not raise the score")
	}
}

func TestOverallScoreEmptyIsNil(t *testing.T) {
	t.Parallel()

	if got := OverallScore(); got != nil {
		t.Errorf("no groups = %v, want nil", *got)
	}
	if got := OverallScore(nil, map[string]*float64{"a": nil}); got != nil {
		t.Errorf("only nil scores = %v, want nil", *got)
	}
}

func TestOverallScoreAverages(t *testing.T) {
	t.Parallel()

	got := OverallScore(
		map[string]*float64{"fcp": fp(0.8), "lcp": fp(0.6)},
		map[string]*float64{"https": fp(1.0)},
	)
	if got == nil || *got != 80 {
		t.Fatalf("OverallScore = %v, want 80", got)
	}
}

func TestOverallScoreClamps(t *testing.T) {
	t.Parallel()

	got := OverallScore(map[string]*float64{"bogus": fp(3.0), "neg": fp(-1.0)})
	if got == nil || *got != 50 {
		t.Fatalf("OverallScore with out-of-range inputs = %v, want 50", got)
	}
}

func TestAuditGroups(t *testing.T) {
	t.Parallel()

	r := &model.AnalysisResult{
		Performance: &model.Performance{
			Mobile: &model.DeviceMetrics{Audits: map[string]*float64{"fcp": fp(0.5)}},
		},
		Security: &model.Security{Audits: map[string]*float64{"https": fp(1)}},
	}
	groups := AuditGroups(r)
	if len(groups) != 2 {
		t.Fatalf("AuditGroups returned %d groups, want 2", len(groups))
	}

	// A bare report yields nothing scorable.
	if got := AuditGroups(&model.AnalysisResult{}); len(got) != 0 {
		t.Errorf("empty report produced %d groups", len(got))
	}
}
