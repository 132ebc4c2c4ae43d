// Package llm adapts the upstream completion providers to one interface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/comigor/halilintar-go/internal/config"
)

// Provider tags accepted by the gateway.
const (
	Gemini   = "gemini"
	DeepSeek = "deepseek"
)

// Tags lists every provider tag.
var Tags = []string{Gemini, DeepSeek}

// NoResponse is returned as content when a provider answers without text.
const NoResponse = "No response"

var ErrUnknownProvider = errors.New("invalid model")

// Provider completes a single flattened user turn under a system instruction.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Label is the human name of a provider tag.
func Label(tag string) string {
	switch tag {
	case Gemini:
		return "Google Gemini"
	case DeepSeek:
		return "DeepSeek R1"
	default:
		return tag
	}
}

// Providers maps provider tags to adapters.
type Providers map[string]Provider

// NewProviders builds both adapters from configuration.
func NewProviders(cfg config.ProvidersConfig) Providers {
	return Providers{
		Gemini:   NewGeminiProvider(cfg.Gemini, nil),
		DeepSeek: NewDeepSeekProvider(cfg.DeepSeek, NewClient(cfg.DeepSeek)),
	}
}

func (p Providers) Get(tag string) (Provider, error) {
	prov, ok := p[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
	return prov, nil
}
