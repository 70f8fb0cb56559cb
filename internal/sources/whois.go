package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// WhoisResult tags the record with whether it came from the mock fallback,
// so the engine can mark the report partial.
type WhoisResult struct {
	Record *model.WhoisRecord
	Mocked bool
}

// WhoisClient proxies a WHOIS provider. Provider errors are wrapped as
// provider errors so the server layer can sanitize them before they reach a
// client — raw provider messages can leak credential or credit details.
type WhoisClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logging.Logger
}

func NewWhoisClient(cfg config.SourcesConfig, httpClient *http.Client, logger logging.Logger) *WhoisClient {
	if httpClient == nil {
		timeout := cfg.WhoisTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &WhoisClient{
		endpoint: cfg.WhoisEndpoint,
		apiKey:   cfg.WhoisAPIKey,
		client:   httpClient,
		logger:   logger.With(logging.Field{Key: "component", Value: "source-whois"}),
	}
}

// Lookup returns the WHOIS record for a domain. Without an API key it
// degrades to a mock record so local development works without credentials.
func (wc *WhoisClient) Lookup(ctx context.Context, domain string) (*WhoisResult, error) {
	if wc.apiKey == "" {
		wc.logger.Info("no whois api key, returning mock record",
			logging.Field{Key: "domain", Value: domain})
		return &WhoisResult{
			Record: &model.WhoisRecord{
				DomainName: domain,
				Registrar:  "Mock Registrar (no API key configured)",
			},
			Mocked: true,
		}, nil
	}

	q := url.Values{}
	q.Set("domainName", domain)
	q.Set("apiKey", wc.apiKey)
	q.Set("outputFormat", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wc.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, newError("whois", err)
	}

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, newError("whois", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, newError("whois", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providerError("whois", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var payload struct {
		WhoisRecord struct {
			DomainName  string `json:"domainName"`
			CreatedDate string `json:"createdDate"`
			ExpiresDate string `json:"expiresDate"`
			UpdatedDate string `json:"updatedDate"`
			Status      string `json:"status"`
			Registrar   string `json:"registrarName"`
			NameServers struct {
				HostNames []string `json:"hostNames"`
			} `json:"nameServers"`
		} `json:"WhoisRecord"`
		ErrorMessage string `json:"ErrorMessage"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError("whois", fmt.Errorf("decode response: %w", err))
	}
	if payload.ErrorMessage != "" {
		return nil, providerError("whois", fmt.Errorf("%s", payload.ErrorMessage))
	}

	rec := &model.WhoisRecord{
		DomainName:  payload.WhoisRecord.DomainName,
		Registrar:   payload.WhoisRecord.Registrar,
		CreatedDate: payload.WhoisRecord.CreatedDate,
		ExpiresDate: payload.WhoisRecord.ExpiresDate,
		UpdatedDate: payload.WhoisRecord.UpdatedDate,
		NameServers: payload.WhoisRecord.NameServers.HostNames,
	}
	if payload.WhoisRecord.Status != "" {
		rec.Status = []string{payload.WhoisRecord.Status}
	}
	if rec.DomainName == "" {
		rec.DomainName = domain
	}
	return &WhoisResult{Record: rec}, nil
}
