package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const listTimeout = 10 * time.Second

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type lmStudioModelsResponse struct {
	Data []struct {
		ID    string `json:"id"`
		State string `json:"state"`
		Type  string `json:"type"`
	} `json:"data"`
}

// ListOllamaModels queries GET {baseURL}/api/tags.
func ListOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, &ConfigError{Provider: "ollama", Msg: "base URL is not configured"}
	}

	var tags ollamaTagsResponse
	if err := getJSON(ctx, "ollama", baseURL+"/api/tags", &tags); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}
	return models, nil
}

// ListLMStudioModels queries LM Studio's native GET {baseURL}/api/v0/models,
// dropping embedding models. When the native endpoint fails it falls back to
// the OpenAI-compatible GET {baseURL}/v1/models.
func ListLMStudioModels(ctx context.Context, baseURL, apiKey string) ([]string, error) {
	baseURL = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(baseURL), "/"), "/v1")
	if baseURL == "" {
		return nil, &ConfigError{Provider: "lmstudio", Msg: "base URL is not configured"}
	}

	var native lmStudioModelsResponse
	nativeErr := getJSON(ctx, "lmstudio", baseURL+"/api/v0/models", &native)
	if nativeErr == nil {
		models := make([]string, 0, len(native.Data))
		for _, m := range native.Data {
			if m.ID == "" || m.Type == "embeddings" {
				continue
			}
			models = append(models, m.ID)
		}
		return models, nil
	}

	if apiKey == "" {
		apiKey = lmStudioPlaceholderKey
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL+"/v1/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(listTimeout),
	)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lmstudio models: native endpoint: %v; compatible endpoint: %w", nativeErr, err)
	}
	models := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

func getJSON(ctx context.Context, provider, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if nerr := transportError(ctx, provider, err); nerr != nil {
			return nerr
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(provider, resp.StatusCode, "")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
