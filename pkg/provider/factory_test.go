package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/noteforge/pkg/config"
)

func TestNewSelectsProviderByID(t *testing.T) {
	s := config.Default()
	s.Providers[config.ProviderOpenAI] = config.ProviderSettings{APIKey: "sk", BaseURL: "http://localhost:9/v1", SelectedModel: "gpt-4o-mini"}
	s.Providers[config.ProviderAnthropic] = config.ProviderSettings{APIKey: "ak"}

	tests := []struct {
		id   config.ProviderID
		name string
	}{
		{config.ProviderOllama, "ollama"},
		{config.ProviderLMStudio, "lmstudio"},
		{config.ProviderOpenAI, "openai"},
		{config.ProviderAnthropic, "anthropic"},
		{config.ProviderMock, "mock"},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			p, err := New(context.Background(), s, tt.id, nil)
			if err != nil {
				t.Fatalf("New(%s): %v", tt.id, err)
			}
			if p.Name() != tt.name {
				t.Fatalf("Name() = %q, want %q", p.Name(), tt.name)
			}
		})
	}
}

func TestNewReportsMissingKey(t *testing.T) {
	s := config.Default()
	_, err := New(context.Background(), s, config.ProviderGemini, nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key is missing") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestNewModelsFollowSettings(t *testing.T) {
	s := config.Default()
	s.Providers[config.ProviderOpenAI] = config.ProviderSettings{APIKey: "sk", BaseURL: "http://localhost:9/v1", Models: []string{"a", "b"}}

	p, err := New(context.Background(), s, config.ProviderOpenAI, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := strings.Join(p.Models(), ","); got != "a,b" {
		t.Fatalf("Models() = %q", got)
	}
}
