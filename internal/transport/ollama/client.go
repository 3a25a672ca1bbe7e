// Package ollama implements domain.Generator over the Ollama-style /api/generate endpoint.
package ollama

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

	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
)

const (
	// DefaultBaseURL is the public mlvoca endpoint.
	DefaultBaseURL = "https://mlvoca.com"
	// DefaultTimeout bounds a single generate call.
	DefaultTimeout = 60 * time.Second

	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	// maxErrorBody caps how much of a non-2xx body is kept for diagnostics.
	maxErrorBody = 512
)

// Compile-time checks.
var (
	_ domain.Generator     = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// Config holds the generator endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client is a blocking, non-streaming /api/generate client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// NewClient creates a generator client. Zero values fall back to DefaultBaseURL and DefaultTimeout.
func NewClient(cfg *Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Generate sends one non-streaming request and returns the "response" field, or "" when absent.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", domain.NewTransportError(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.NewTransportError(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Generator returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return "", domain.NewTransportError(resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	var envelope json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", domain.NewTransportError(resp.StatusCode, fmt.Errorf("decode envelope: %w", err))
	}
	if !bytes.HasPrefix(bytes.TrimSpace(envelope), []byte("{")) {
		return "", domain.NewTransportError(resp.StatusCode, errors.New("envelope is not a JSON object"))
	}
	var out generateResponse
	if err := json.Unmarshal(envelope, &out); err != nil {
		return "", domain.NewTransportError(resp.StatusCode, fmt.Errorf("decode envelope: %w", err))
	}
	if out.Response == nil {
		return "", nil
	}
	return *out.Response, nil
}

// HealthCheck verifies the endpoint answers GET /api/tags with a 2xx status.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("list tags: unexpected status " + resp.Status)
	}
	return nil
}
