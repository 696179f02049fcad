package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zen-systems/noteforge/pkg/config"
)

// New builds the provider for id from settings. Configuration problems that
// can be detected without a model selector (missing key, missing base URL)
// are reported here.
func New(ctx context.Context, s *config.Settings, id config.ProviderID, logger *slog.Logger) (Provider, error) {
	ps := s.ProviderConfig(id)
	models := s.ConfiguredModels(id)
	if logger != nil {
		logger = logger.With(slog.String("provider", string(id)))
	}

	switch id {
	case config.ProviderGemini:
		return NewGoogleProvider(ctx, ps.APIKey, ps.BaseURL, models, logger)
	case config.ProviderAnthropic:
		return NewAnthropicProvider(ps.APIKey, ps.BaseURL, models, logger)
	case config.ProviderOllama:
		return NewOllamaProvider(ps.BaseURL, models, logger)
	case config.ProviderLMStudio:
		return NewOpenAICompatibleProvider(OpenAIOptions{
			Name:        string(id),
			APIKey:      ps.APIKey,
			BaseURL:     lmStudioChatURL(ps.BaseURL),
			Models:      models,
			KeyOptional: true,
			Timeout:     LocalTimeout,
			Logger:      logger,
		})
	case config.ProviderOpenAI:
		return NewOpenAICompatibleProvider(OpenAIOptions{
			Name:    string(id),
			APIKey:  ps.APIKey,
			BaseURL: ps.BaseURL,
			Models:  models,
			Logger:  logger,
		})
	case config.ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid value for provider: %q", id)}
	}
}

// ListModels reports the models a provider can serve. Local servers are
// queried; other providers report their configured list.
func ListModels(ctx context.Context, s *config.Settings, id config.ProviderID) ([]string, error) {
	ps := s.ProviderConfig(id)
	switch id {
	case config.ProviderOllama:
		return ListOllamaModels(ctx, ps.BaseURL)
	case config.ProviderLMStudio:
		return ListLMStudioModels(ctx, ps.BaseURL, ps.APIKey)
	default:
		if !id.Valid() {
			return nil, &ConfigError{Msg: fmt.Sprintf("invalid value for provider: %q", id)}
		}
		return s.ConfiguredModels(id), nil
	}
}

// lmStudioChatURL points the chat client at the /v1 prefix LM Studio serves
// its OpenAI-compatible API under. A base URL already ending in /v1 is kept.
func lmStudioChatURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" || strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}
