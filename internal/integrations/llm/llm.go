package llm

import (
	"context"
	"fmt"
	"net/http"

	"standupbot/internal/config"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultMaxTokens      = 1500
)

// Generator turns a prompt into a finite sequence of text chunks. emit is
// called once per chunk, in order; a non-nil error from emit stops the stream
// and is returned unchanged.
type Generator interface {
	Stream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

// New returns the generator selected by cfg.LLMProvider.
func New(cfg config.Config, httpClient *http.Client) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, httpClient), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
