package sources

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

// StatusClient checks availability and grades the TLS session. It uses its
// own http.Client because it needs the raw *tls.ConnectionState, which the
// webclient abstraction deliberately does not expose.
type StatusClient struct {
	client *http.Client
	logger logging.Logger
}

func NewStatusClient(cfg config.SourcesConfig, httpClient *http.Client, logger logging.Logger) *StatusClient {
	if httpClient == nil {
		timeout := cfg.StatusTimeout
		if timeout == 0 {
			timeout = 8 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &StatusClient{
		client: httpClient,
		logger: logger.With(logging.Field{Key: "component", Value: "source-status"}),
	}
}

// Check performs a HEAD request (falling back to GET when HEAD is refused)
// and reports liveness plus an SSL grade. The documented fallback for a
// failed check is {IsOnline:false} — the caller never sees an error from a
// dead site, only from a malformed request.
func (sc *StatusClient) Check(ctx context.Context, target string) (*model.SiteStatus, string) {
	resp, err := sc.do(ctx, http.MethodHead, target)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if err == nil {
			resp.Body.Close()
		}
		resp, err = sc.do(ctx, http.MethodGet, target)
	}
	if err != nil {
		sc.logger.Warn("status check failed",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
		return &model.SiteStatus{IsOnline: false, Error: Sanitize(err)}, ""
	}
	defer resp.Body.Close()

	grade := sslGrade(resp.TLS)
	return &model.SiteStatus{
		IsOnline:   resp.StatusCode < 500,
		StatusCode: resp.StatusCode,
	}, grade
}

func (sc *StatusClient) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, newError("status", err)
	}
	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, newError("status", err)
	}
	return resp, nil
}

// sslGrade maps the negotiated TLS version to a coarse letter grade.
func sslGrade(state *tls.ConnectionState) string {
	if state == nil {
		return ""
	}
	switch state.Version {
	case tls.VersionTLS13:
		return "A"
	case tls.VersionTLS12:
		return "B"
	case tls.VersionTLS11:
		return "C"
	default:
		return "F"
	}
}
