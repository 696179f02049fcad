package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LocalTimeout bounds calls to local servers so an unreachable host cannot
// suspend a run indefinitely.
const LocalTimeout = 120 * time.Second

// OllamaProvider talks to an Ollama server's /api/generate endpoint. No
// authentication is sent.
type OllamaProvider struct {
	baseURL    string
	models     []string
	httpClient *http.Client
	logger     *slog.Logger
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaProvider creates a provider for the server at baseURL.
func NewOllamaProvider(baseURL string, models []string, logger *slog.Logger) (*OllamaProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, &ConfigError{Provider: "ollama", Msg: "base URL is not configured"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		models:     models,
		httpClient: &http.Client{Timeout: LocalTimeout},
		logger:     logger,
	}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Models returns the configured model selectors.
func (p *OllamaProvider) Models() []string {
	return p.models
}

// GenerateText posts a non-streaming generate request.
func (p *OllamaProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := req.validate(p.Name(), p.models); err != nil {
		return "", err
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if nerr := transportError(ctx, p.Name(), err); nerr != nil {
			return "", nerr
		}
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Provider: p.Name(), Err: err}
	}

	var out ollamaGenerateResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg string
		if decodeErr == nil {
			msg = out.Error
			if msg == "" {
				msg = strings.TrimSpace(string(raw))
			}
		}
		return "", responseError(p.Name(), resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to parse ollama response: %w", decodeErr)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}

	p.logger.Debug("ollama generate complete",
		slog.String("model", req.Model),
		slog.Int("chars", len(out.Response)),
		slog.Duration("duration", time.Since(start)),
	)
	return out.Response, nil
}
