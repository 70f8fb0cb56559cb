// Package ai wraps the hosted LLM behind a call-and-validate gateway with a
// rate-limit-only retry policy and a cost-control pre-filter for the visitor
// tracker.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/sitelens/internal/config"
)

// ErrRateLimited signals the provider rejected the call for rate/quota
// reasons; it is the only error class the gateway retries.
var ErrRateLimited = errors.New("ai: rate limited")

// ErrNotConfigured is returned when no API key is present. The engine treats
// it like any other source failure (summary section carries an error).
var ErrNotConfigured = errors.New("ai: client not configured")

// Client is the raw completion contract the gateway retries over. Tests
// substitute a scripted fake.
type Client interface {
	// Complete sends a system+user prompt pair and returns the assistant
	// message content verbatim.
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient is an OpenAI-compatible chat-completions client.
type ChatClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*ChatClient)(nil)

// NewChatClient builds a client from configuration.
func NewChatClient(cfg config.AIConfig) *ChatClient {
	return &ChatClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Complete posts the prompt pair and returns the first choice's content.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
