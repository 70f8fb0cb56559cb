package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// PageSpeedResult tags the audit output with whether it came from the mock
// fallback, so the engine can mark the report partial.
type PageSpeedResult struct {
	Performance *model.Performance
	Mocked      bool
}

// PageSpeedClient runs the performance audit for both device strategies.
// This is the slow, expensive full-pass source and carries the longest
// timeout. Without an API key it degrades to deterministic mock metrics so
// local development works without credentials.
type PageSpeedClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logging.Logger
}

func NewPageSpeedClient(cfg config.SourcesConfig, httpClient *http.Client, logger logging.Logger) *PageSpeedClient {
	if httpClient == nil {
		timeout := cfg.PageSpeedTimeout
		if timeout == 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &PageSpeedClient{
		endpoint: cfg.PageSpeedEndpoint,
		apiKey:   cfg.PageSpeedAPIKey,
		client:   httpClient,
		logger:   logger.With(logging.Field{Key: "component", Value: "source-pagespeed"}),
	}
}

// Audit fetches mobile and desktop audits concurrently. One strategy failing
// still yields a result for the other; only both failing is an error.
func (pc *PageSpeedClient) Audit(ctx context.Context, target string) (*PageSpeedResult, error) {
	if pc.apiKey == "" {
		pc.logger.Info("no pagespeed api key, returning mock audit",
			logging.Field{Key: "url", Value: target})
		return &PageSpeedResult{Performance: mockPerformance(target), Mocked: true}, nil
	}

	perf := &model.Performance{}
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i, strategy := range []string{"mobile", "desktop"} {
		wg.Add(1)
		go func(i int, strategy string) {
			defer wg.Done()
			metrics, err := pc.auditStrategy(ctx, target, strategy)
			if err != nil {
				errs[i] = err
				return
			}
			if strategy == "mobile" {
				perf.Mobile = metrics
			} else {
				perf.Desktop = metrics
			}
		}(i, strategy)
	}
	wg.Wait()

	if perf.Mobile == nil && perf.Desktop == nil {
		return nil, newError("pagespeed", fmt.Errorf("all strategies failed: %v / %v", errs[0], errs[1]))
	}
	for _, err := range errs {
		if err != nil {
			pc.logger.Warn("pagespeed strategy failed",
				logging.Field{Key: "url", Value: target},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	return &PageSpeedResult{Performance: perf}, nil
}

func (pc *PageSpeedClient) auditStrategy(ctx context.Context, target, strategy string) (*model.DeviceMetrics, error) {
	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", strategy)
	q.Set("key", pc.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, newError("pagespeed", err)
	}

	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, newError("pagespeed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError("pagespeed", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, newError("pagespeed", err)
	}

	var payload struct {
		LighthouseResult struct {
			Categories struct {
				Performance struct {
					Score *float64 `json:"score"`
				} `json:"performance"`
			} `json:"categories"`
			Audits map[string]struct {
				Score        *float64 `json:"score"`
				NumericValue float64  `json:"numericValue"`
			} `json:"audits"`
		} `json:"lighthouseResult"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError("pagespeed", fmt.Errorf("decode response: %w", err))
	}

	metrics := &model.DeviceMetrics{Audits: make(map[string]*float64)}
	if s := payload.LighthouseResult.Categories.Performance.Score; s != nil {
		metrics.PerformanceScore = int(math.Round(*s * 100))
	}
	for id, audit := range payload.LighthouseResult.Audits {
		metrics.Audits[id] = audit.Score
		switch id {
		case "first-contentful-paint":
			metrics.FirstContentfulPaint = audit.NumericValue
		case "largest-contentful-paint":
			metrics.LargestContentfulPaint = audit.NumericValue
		case "cumulative-layout-shift":
			metrics.CumulativeLayoutShift = audit.NumericValue
		case "total-blocking-time":
			metrics.TotalBlockingTime = audit.NumericValue
		case "speed-index":
			metrics.SpeedIndex = audit.NumericValue
		}
	}

	return metrics, nil
}

// mockPerformance derives stable fake metrics from the URL so repeated local
// runs stay comparable.
func mockPerformance(target string) *model.Performance {
	var h uint32
	for _, c := range target {
		h = h*31 + uint32(c)
	}
	base := int(h%30) + 60 // 60..89

	mk := func(offset int) *model.DeviceMetrics {
		score := base + offset
		if score > 100 {
			score = 100
		}
		s := float64(score) / 100
		return &model.DeviceMetrics{
			PerformanceScore:       score,
			FirstContentfulPaint:   1200 + float64(h%800),
			LargestContentfulPaint: 2100 + float64(h%1500),
			CumulativeLayoutShift:  float64(h%20) / 100,
			Audits:                 map[string]*float64{"performance": &s},
		}
	}
	return &model.Performance{Mobile: mk(0), Desktop: mk(5)}
}
