package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/halilintar-go/internal/config"
)

// GeminiProvider calls the generateContent REST endpoint.
type GeminiProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

// NewGeminiProvider creates the adapter. A nil client gets a default with a
// generous timeout.
func NewGeminiProvider(cfg config.ProviderConfig, client *http.Client) *GeminiProvider {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &GeminiProvider{cfg: cfg, client: client}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GeminiProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", errors.New("Gemini API key not configured")
	}

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	var data geminiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && data.Error != nil && data.Error.Message != "" {
			return "", errors.New(data.Error.Message)
		}
		return "", fmt.Errorf("Gemini API error: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("Gemini response: %w", decodeErr)
	}

	if len(data.Candidates) == 0 || len(data.Candidates[0].Content.Parts) == 0 || data.Candidates[0].Content.Parts[0].Text == "" {
		return NoResponse, nil
	}
	return data.Candidates[0].Content.Parts[0].Text, nil
}
