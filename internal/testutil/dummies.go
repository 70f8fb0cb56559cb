// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
	"github.com/raysh454/sitelens/internal/sources"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Clock ─────────────────────────────────────────────────────────────

// FakeClock is an injectable clock. Use Now as the `now func() time.Time`
// dependency and Advance to move time forward.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ─── Source stubs ──────────────────────────────────────────────────────

// StubPage implements app.PageFetcher. Set Err to force a failure.
type StubPage struct {
	Result *sources.PageResult
	Err    error
	Calls  int
	mu     sync.Mutex
}

func (s *StubPage) Fetch(_ context.Context, canonicalURL, domain string) (*sources.PageResult, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &sources.PageResult{
		Overview: model.Overview{URL: canonicalURL, Domain: domain, Title: "stub"},
		Headers:  map[string]string{"server": "stub"},
	}, nil
}

// StubGeoIP implements app.GeoLookup.
type StubGeoIP struct {
	Result *model.Hosting
	Err    error
}

func (s *StubGeoIP) Lookup(_ context.Context, host string) (*model.Hosting, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &model.Hosting{IP: "192.0.2.1", ISP: "Stub ISP", Country: "US"}, nil
}

// StubSpeed implements app.PerformanceAuditor.
type StubSpeed struct {
	Result *sources.PageSpeedResult
	Err    error
	Delay  time.Duration
}

func (s *StubSpeed) Audit(ctx context.Context, _ string) (*sources.PageSpeedResult, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &sources.PageSpeedResult{
		Performance: &model.Performance{
			Mobile:  &model.DeviceMetrics{PerformanceScore: 85},
			Desktop: &model.DeviceMetrics{PerformanceScore: 90},
		},
	}, nil
}

// StubWhois implements app.WhoisLookup.
type StubWhois struct {
	Result *sources.WhoisResult
	Err    error
}

func (s *StubWhois) Lookup(_ context.Context, domain string) (*sources.WhoisResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &sources.WhoisResult{
		Record: &model.WhoisRecord{DomainName: domain, Registrar: "Stub Registrar"},
	}, nil
}

// StubTraffic implements app.TrafficEstimator.
type StubTraffic struct {
	Result *model.Traffic
	Err    error
}

func (s *StubTraffic) Estimate(_ context.Context, _ string) (*model.Traffic, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &model.Traffic{MonthlyVisits: 1000, Source: "estimate"}, nil
}

// StubTech implements app.TechDetector.
type StubTech struct {
	Result *model.TechStack
	Err    error
}

func (s *StubTech) Detect(_ context.Context, _ *sources.PageResult) (*model.TechStack, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &model.TechStack{}, nil
}

// StubStatus implements app.StatusChecker.
type StubStatus struct {
	Result *model.SiteStatus
	Grade  string
}

func (s *StubStatus) Check(_ context.Context, _ string) (*model.SiteStatus, string) {
	if s.Result != nil {
		return s.Result, s.Grade
	}
	return &model.SiteStatus{IsOnline: true, StatusCode: 200}, "A"
}

// ─── AI client ─────────────────────────────────────────────────────────

// ScriptedAIClient implements ai.Client, returning queued responses in order.
// Each Response entry is either an error or a raw completion string; once the
// script is exhausted further calls fail.
type ScriptedAIClient struct {
	mu        sync.Mutex
	Responses []ScriptedResponse
	Calls     int
}

type ScriptedResponse struct {
	Out string
	Err error
}

func (c *ScriptedAIClient) Complete(_ context.Context, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Calls >= len(c.Responses) {
		c.Calls++
		return "", fmt.Errorf("scripted ai client: no response for call %d", c.Calls)
	}
	r := c.Responses[c.Calls]
	c.Calls++
	return r.Out, r.Err
}
