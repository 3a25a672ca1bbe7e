// Package openai implements domain.Generator over an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
)

// Compile-time checks.
var (
	_ domain.Generator     = (*Generator)(nil)
	_ domain.HealthChecker = (*Generator)(nil)
)

// Generator is a text generator using the OpenAI-compatible chat API (OpenAI, Nebius, vLLM, Ollama /v1).
type Generator struct {
	client *openai.Client
	user   string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	User       string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generator.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		user:   cfg.User,
		logger: logger,
	}
}

// Generate sends prompt as a single user message and returns the first choice's content.
// No choices yields "".
func (g *Generator) Generate(ctx context.Context, prompt, model string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		User: g.user,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		g.logger.Debug("Chat completion returned no choices", zap.String("model", model))
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps client errors to *domain.TransportError, keeping the HTTP status when known.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewTransportError(reqErr.HTTPStatusCode,
			fmt.Errorf("chat API error: %s: %w", detail, err))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewTransportError(apiErr.HTTPStatusCode,
			fmt.Errorf("chat API error: %s: %w", apiErr.Message, err))
	}

	return domain.NewTransportError(0, fmt.Errorf("chat request failed: %w", err))
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
