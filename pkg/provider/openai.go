package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// lmStudioPlaceholderKey is sent when LM Studio runs without authentication.
const lmStudioPlaceholderKey = "lm-studio"

// OpenAICompatibleProvider speaks the chat-completions contract. It serves the
// hosted OpenAI API and local gateways such as LM Studio.
type OpenAICompatibleProvider struct {
	name   string
	client openai.Client
	models []string
	logger *slog.Logger
}

// OpenAIOptions configures an OpenAICompatibleProvider.
type OpenAIOptions struct {
	// Name is the provider identifier reported in errors.
	Name    string
	APIKey  string
	BaseURL string
	Models  []string
	// KeyOptional allows an empty key (local servers).
	KeyOptional bool
	// Timeout bounds each request. Zero keeps the client default.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewOpenAICompatibleProvider creates a chat-completions provider.
func NewOpenAICompatibleProvider(opts OpenAIOptions) (*OpenAICompatibleProvider, error) {
	if opts.Name == "" {
		opts.Name = "openai"
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		if !opts.KeyOptional {
			return nil, &ConfigError{Provider: opts.Name, Msg: "API key is missing"}
		}
		apiKey = lmStudioPlaceholderKey
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		return nil, &ConfigError{Provider: opts.Name, Msg: "base URL is not configured"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(withTrailingSlash(baseURL)),
		option.WithMaxRetries(0),
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &OpenAICompatibleProvider{
		name:   opts.Name,
		client: openai.NewClient(clientOpts...),
		models: opts.Models,
		logger: opts.Logger,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAICompatibleProvider) Name() string {
	return p.name
}

// Models returns the configured model selectors.
func (p *OpenAICompatibleProvider) Models() []string {
	return p.models
}

func (p *OpenAICompatibleProvider) params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
}

// GenerateText posts a chat completion and returns choices[0].message.content.
func (p *OpenAICompatibleProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := req.validate(p.name, p.models); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return "", p.wrapError(ctx, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &EmptyResponseError{Provider: p.name}
	}

	content := resp.Choices[0].Message.Content
	p.logger.Debug("chat completion complete",
		slog.String("provider", p.name),
		slog.String("model", req.Model),
		slog.Int("chars", len(content)),
		slog.Duration("duration", time.Since(start)),
	)
	return content, nil
}

// StreamText streams a chat completion, emitting each content delta.
func (p *OpenAICompatibleProvider) StreamText(ctx context.Context, req Request, emit func(string)) (string, error) {
	if err := req.validate(p.name, p.models); err != nil {
		return "", err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if emit != nil {
			emit(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", p.wrapError(ctx, err)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &EmptyResponseError{Provider: p.name}
	}
	return sb.String(), nil
}

func (p *OpenAICompatibleProvider) wrapError(ctx context.Context, err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return responseError(p.name, apierr.StatusCode, apierr.Message)
	}
	if nerr := transportError(ctx, p.name, err); nerr != nil {
		return nerr
	}
	return fmt.Errorf("%s API error: %w", p.name, err)
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
