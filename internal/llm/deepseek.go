package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/halilintar-go/internal/config"
	"github.com/comigor/halilintar-go/internal/logger"
)

// Client is minimal subset of openai.Client used by the DeepSeek adapter; it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI-compatible client pointed at the provider.
func NewClient(cfg config.ProviderConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return openai.NewClientWithConfig(config)
}

// DeepSeekProvider talks to DeepSeek's OpenAI-compatible chat/completions API.
type DeepSeekProvider struct {
	client Client
	cfg    config.ProviderConfig
}

func NewDeepSeekProvider(cfg config.ProviderConfig, client Client) *DeepSeekProvider {
	return &DeepSeekProvider{client: client, cfg: cfg}
}

func (p *DeepSeekProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", errors.New("DeepSeek API key not configured")
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			logger.L.Error("DeepSeek API error", "status", apiErr.HTTPStatusCode, "message", apiErr.Message)
			if apiErr.Message != "" {
				return "", errors.New(apiErr.Message)
			}
			return "", fmt.Errorf("DeepSeek API error: %d", apiErr.HTTPStatusCode)
		}
		return "", fmt.Errorf("DeepSeek request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return NoResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}
