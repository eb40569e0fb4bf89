package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Config - настройки создания провайдера
type Config struct {
	Provider string // "openai" или "gemini"
	APIKey   string
	BaseURL  string
	Model    string
	Retry    RetryConfig
}

// NewProvider создает провайдер по конфигурации и оборачивает его повторами.
// Без API-ключа возвращается провайдер, который всегда недоступен:
// сервис продолжает работать на пуле и резервных вопросах.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return &unavailableProvider{reason: "api key is not configured"}, nil
	}

	var base Provider
	var err error
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		base, err = NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "gemini":
		base, err = NewGeminiProvider(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(base, cfg.Retry), nil
}

type unavailableProvider struct {
	reason string
}

func (p *unavailableProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: errors.New(p.reason)}
}

func (p *unavailableProvider) ModelID() string {
	return "unavailable"
}
