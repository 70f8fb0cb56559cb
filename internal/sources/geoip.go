package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// GeoIPClient resolves a hostname to its serving IP, ISP and country through
// an ip-api style endpoint. This is a fast, cheap fast-pass source.
type GeoIPClient struct {
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

func NewGeoIPClient(cfg config.SourcesConfig, httpClient *http.Client, logger logging.Logger) *GeoIPClient {
	if httpClient == nil {
		timeout := cfg.GeoIPTimeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &GeoIPClient{
		endpoint: cfg.GeoIPEndpoint,
		client:   httpClient,
		logger:   logger.With(logging.Field{Key: "component", Value: "source-geoip"}),
	}
}

// Lookup returns hosting details for the given hostname.
func (gc *GeoIPClient) Lookup(ctx context.Context, host string) (*model.Hosting, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,country,isp,query", gc.endpoint, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError("geoip", err)
	}

	resp, err := gc.client.Do(req)
	if err != nil {
		return nil, newError("geoip", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError("geoip", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Country string `json:"country"`
		ISP     string `json:"isp"`
		Query   string `json:"query"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, newError("geoip", err)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError("geoip", fmt.Errorf("decode response: %w", err))
	}
	if payload.Status != "success" {
		return nil, providerError("geoip", fmt.Errorf("lookup failed: %s", payload.Message))
	}

	gc.logger.Debug("geoip lookup",
		logging.Field{Key: "host", Value: host},
		logging.Field{Key: "country", Value: payload.Country})

	return &model.Hosting{
		IP:      payload.Query,
		ISP:     payload.ISP,
		Country: payload.Country,
	}, nil
}
