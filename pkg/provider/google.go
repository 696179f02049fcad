package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GoogleProvider implements Provider for Gemini models through an API key.
type GoogleProvider struct {
	client *genai.Client
	models []string
	logger *slog.Logger
}

// NewGoogleProvider creates a Gemini provider. baseURL may be empty.
func NewGoogleProvider(ctx context.Context, apiKey, baseURL string, models []string, logger *slog.Logger) (*GoogleProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigError{Provider: "gemini", Msg: "API key is missing"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: withTrailingSlash(baseURL)}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GoogleProvider{client: client, models: models, logger: logger}, nil
}

// Name returns the provider identifier.
func (p *GoogleProvider) Name() string {
	return "gemini"
}

// Models returns the configured model selectors.
func (p *GoogleProvider) Models() []string {
	return p.models
}

// generateConfig maps the request onto Gemini sampling config. Disabling
// thinking is expressed as a zero thinking budget.
func generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.DisableThinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	return cfg
}

// GenerateText sends a prompt to Gemini in a single request.
func (p *GoogleProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := req.validate(p.Name(), p.models); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), generateConfig(req))
	if err != nil {
		return "", p.wrapError(ctx, err)
	}

	content := candidateText(resp)
	if strings.TrimSpace(content) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}
	p.logger.Debug("gemini generate complete",
		slog.String("model", req.Model),
		slog.Bool("thinking_disabled", req.DisableThinking),
		slog.Int("chars", len(content)),
		slog.Duration("duration", time.Since(start)),
	)
	return content, nil
}

// StreamText streams a Gemini response, emitting the text of each chunk.
func (p *GoogleProvider) StreamText(ctx context.Context, req Request, emit func(string)) (string, error) {
	if err := req.validate(p.Name(), p.models); err != nil {
		return "", err
	}

	var sb strings.Builder
	for resp, err := range p.client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Prompt), generateConfig(req)) {
		if err != nil {
			return "", p.wrapError(ctx, err)
		}
		delta := candidateText(resp)
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if emit != nil {
			emit(delta)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}
	return sb.String(), nil
}

// wrapError keeps the SDK message, which carries the status name the
// classifier matches on (for example "Error 429, ... RESOURCE_EXHAUSTED").
func (p *GoogleProvider) wrapError(ctx context.Context, err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return responseError(p.Name(), apierr.Code, apierr.Error())
	}
	var apierrPtr *genai.APIError
	if errors.As(err, &apierrPtr) && apierrPtr != nil {
		return responseError(p.Name(), apierrPtr.Code, apierrPtr.Error())
	}
	if nerr := transportError(ctx, p.Name(), err); nerr != nil {
		return nerr
	}
	return &ProviderResponseError{Provider: p.Name(), Message: err.Error()}
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		content.WriteString(part.Text)
	}
	return content.String()
}
