package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 8192

// AnthropicProvider implements Provider for Claude models.
type AnthropicProvider struct {
	client anthropic.Client
	models []string
	logger *slog.Logger
}

// NewAnthropicProvider creates a Claude provider. baseURL may be empty.
func NewAnthropicProvider(apiKey, baseURL string, models []string, logger *slog.Logger) (*AnthropicProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigError{Provider: "anthropic", Msg: "API key is missing"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(withTrailingSlash(baseURL)))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		models: models,
		logger: logger,
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Models returns the configured model selectors.
func (p *AnthropicProvider) Models() []string {
	return p.models
}

// GenerateText sends a single user message and concatenates the text blocks.
func (p *AnthropicProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := req.validate(p.Name(), p.models); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return "", responseError(p.Name(), apierr.StatusCode, apierr.Error())
		}
		if nerr := transportError(ctx, p.Name(), err); nerr != nil {
			return "", nerr
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}

	p.logger.Debug("anthropic message complete",
		slog.String("model", req.Model),
		slog.Int("chars", content.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return content.String(), nil
}
