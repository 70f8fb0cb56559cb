package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// monitoringReferrers are referrers that identify automated probes. Events
// carrying one never reach the model.
var monitoringReferrers = []string{
	"uptimerobot", "pingdom", "statuscake", "site24x7", "monitor",
}

// Gateway adds the retry policy and output-schema validation on top of a raw
// Client. Retries apply to rate-limit errors only: up to maxAttempts calls
// with exponential backoff starting at backoffBase and doubling per attempt.
// Any other error surfaces immediately after a single call.
type Gateway struct {
	client      Client
	maxAttempts int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      logging.Logger
}

// NewGateway wires a gateway from configuration. sleep may be nil; tests
// inject a recording fake so the retry schedule is verifiable without timers.
func NewGateway(cfg config.AIConfig, client Client, logger logging.Logger, sleep func(ctx context.Context, d time.Duration) error) *Gateway {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}
	return &Gateway{
		client:      client,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleep:       sleep,
		logger:      logger.With(logging.Field{Key: "component", Value: "ai-gateway"}),
	}
}

// complete runs the retry loop. Implemented as an explicit loop with an
// attempt counter so the policy stays bounded and unit-testable.
func (g *Gateway) complete(ctx context.Context, system, user string) (string, error) {
	delay := g.backoffBase
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		out, err := g.client.Complete(ctx, system, user)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}

		lastErr = err
		if attempt == g.maxAttempts {
			break
		}
		g.logger.Warn("rate limited, backing off",
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "delay", Value: delay.String()})
		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("giving up after %d attempts: %w", g.maxAttempts, lastErr)
}

// decodeInto validates the model output against the expected schema by
// decoding strictly into the target type.
func decodeInto(raw string, target any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("ai output failed schema validation: %w", err)
	}
	return nil
}

// Summarize produces the AI summary section for a report.
func (g *Gateway) Summarize(ctx context.Context, report *model.AnalysisResult) (*model.AISummary, error) {
	input, err := json.Marshal(map[string]any{
		"url":         report.Overview.URL,
		"title":       report.Overview.Title,
		"description": report.Overview.Description,
		"security":    report.Security,
		"hosting":     report.Hosting,
	})
	if err != nil {
		return nil, err
	}

	const system = `You are a website analyst. Reply with a JSON object:
{"summary": string, "strengths": [string], "concerns": [string]}`

	raw, err := g.complete(ctx, system, string(input))
	if err != nil {
		return nil, err
	}

	var out struct {
		Summary   string   `json:"summary"`
		Strengths []string `json:"strengths"`
		Concerns  []string `json:"concerns"`
	}
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("ai output failed schema validation: empty summary")
	}
	return &model.AISummary{
		Summary:   out.Summary,
		Strengths: out.Strengths,
		Concerns:  out.Concerns,
	}, nil
}

// CompareVerdict produces the comparative summary for two completed reports.
// Winner must be one of the two hostnames or "Tie"; anything else fails
// validation.
func (g *Gateway) CompareVerdict(ctx context.Context, a, b *model.AnalysisResult) (*model.ComparisonVerdict, error) {
	input, err := json.Marshal(map[string]any{
		"a": summaryInput(a),
		"b": summaryInput(b),
	})
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(`You compare two websites. Reply with a JSON object:
{"title": string, "narrative": string, "winner": string}
winner must be %q, %q or "Tie".`, a.Overview.Domain, b.Overview.Domain)

	raw, err := g.complete(ctx, system, string(input))
	if err != nil {
		return nil, err
	}

	var out model.ComparisonVerdict
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	if out.Winner != a.Overview.Domain && out.Winner != b.Overview.Domain && out.Winner != "Tie" {
		return nil, fmt.Errorf("ai output failed schema validation: winner %q not a contestant", out.Winner)
	}
	return &out, nil
}

func summaryInput(r *model.AnalysisResult) map[string]any {
	return map[string]any{
		"domain":       r.Overview.Domain,
		"title":        r.Overview.Title,
		"overallScore": r.OverallScore,
		"security":     r.Security,
		"performance":  r.Performance,
	}
}

// ShouldTrack decides whether a visitor event is worth recording. Obviously
// uninteresting events (local traffic, monitoring probes) are rejected
// before the paid model call is made.
func (g *Gateway) ShouldTrack(ctx context.Context, event *model.VisitorEvent) (*model.TrackDecision, error) {
	if reason, skip := prefilter(event); skip {
		g.logger.Debug("track pre-filter rejected event",
			logging.Field{Key: "reason", Value: reason})
		return &model.TrackDecision{Tracked: false, Reason: reason}, nil
	}

	input, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	const system = `You classify website visitor events as worth tracking or not.
Reply with a JSON object: {"tracked": bool, "reason": string}`

	raw, err := g.complete(ctx, system, string(input))
	if err != nil {
		return nil, err
	}

	var out model.TrackDecision
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// prefilter returns (reason, true) when the event must be rejected without a
// model call.
func prefilter(event *model.VisitorEvent) (string, bool) {
	if event == nil {
		return "empty event", true
	}
	if event.IP != "" {
		if ip := net.ParseIP(event.IP); ip != nil {
			if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
				return "local or private address", true
			}
		}
	}
	ref := strings.ToLower(event.Referrer)
	for _, needle := range monitoringReferrers {
		if strings.Contains(ref, needle) {
			return "monitoring referrer", true
		}
	}
	return "", false
}
