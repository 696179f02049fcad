package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ProviderID identifies a text-generation backend.
type ProviderID string

const (
	ProviderGemini    ProviderID = "gemini"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderOllama    ProviderID = "ollama"
	ProviderLMStudio  ProviderID = "lmstudio"
	ProviderOpenAI    ProviderID = "openai"
	ProviderMock      ProviderID = "mock"
)

// KnownProviders lists every provider identity in display order.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderGemini, ProviderAnthropic, ProviderOllama, ProviderLMStudio, ProviderOpenAI, ProviderMock}
}

// Valid reports whether id names a supported provider.
func (id ProviderID) Valid() bool {
	for _, known := range KnownProviders() {
		if id == known {
			return true
		}
	}
	return false
}

// ModelTier selects between the fast and the high-quality model of a provider.
type ModelTier string

const (
	TierFast        ModelTier = "fast"
	TierHighQuality ModelTier = "high-quality"
)

// ParseTier normalizes a tier name. Empty input yields TierFast.
func ParseTier(value string) (ModelTier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "fast":
		return TierFast, nil
	case "high-quality", "high_quality", "quality", "hq":
		return TierHighQuality, nil
	default:
		return "", fmt.Errorf("invalid model tier %q (want fast or high-quality)", value)
	}
}

// Settings is the configuration surface consumed by the pipeline core.
type Settings struct {
	Provider             ProviderID                      `yaml:"provider" toml:"provider"`
	Providers            map[ProviderID]ProviderSettings `yaml:"providers" toml:"providers"`
	ReasoningModeEnabled bool                            `yaml:"reasoning_mode_enabled" toml:"reasoning_mode_enabled"`
	StreamingEnabled     bool                            `yaml:"streaming_enabled" toml:"streaming_enabled"`
	ModelTier            ModelTier                       `yaml:"model_tier" toml:"model_tier"`
	GenerateHTML         bool                            `yaml:"generate_html" toml:"generate_html"`
	PromptManifest       string                          `yaml:"prompt_manifest,omitempty" toml:"prompt_manifest,omitempty"`
	HistoryPath          string                          `yaml:"history_path,omitempty" toml:"history_path,omitempty"`
	OutputDir            string                          `yaml:"output_dir,omitempty" toml:"output_dir,omitempty"`
	Log                  LogSettings                     `yaml:"log" toml:"log"`
}

// ProviderSettings holds per-provider connection details.
type ProviderSettings struct {
	APIKey        string   `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	BaseURL       string   `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Models        []string `yaml:"models,omitempty" toml:"models,omitempty"`
	SelectedModel string   `yaml:"selected_model,omitempty" toml:"selected_model,omitempty"`
}

// LogSettings configures the structured logger.
type LogSettings struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns settings with every default applied.
func Default() *Settings {
	s := &Settings{}
	applyDefaults(s)
	return s
}

// Load reads settings from the default config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Settings, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return LoadFile(filepath.Join(configDir, "config.yaml"))
}

// LoadFile reads settings from path. A missing file yields defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func LoadFile(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, s); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(s)
	applyDefaults(s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to path while holding an exclusive lock on path+".lock".
func Save(path string, s *Settings) error {
	if s == nil {
		return fmt.Errorf("save failed: settings are nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("save failed: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("save failed: settings file %s is locked", path)
	}
	defer lock.Unlock()

	data, err := encode(path, s)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save failed: %w", err)
	}
	return nil
}

// Dir returns the config directory, creating it when missing.
// NOTEFORGE_CONFIG_DIR overrides the default of ~/.noteforge.
func Dir() (string, error) {
	return getConfigDir()
}

// DefaultPath returns the config file location inside the config directory.
func DefaultPath() (string, error) {
	dir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Validate checks enum fields.
func (s *Settings) Validate() error {
	if !s.Provider.Valid() {
		return fmt.Errorf("invalid value for provider: %q", s.Provider)
	}
	if _, err := ParseTier(string(s.ModelTier)); err != nil {
		return err
	}
	for id := range s.Providers {
		if !id.Valid() {
			return fmt.Errorf("invalid value for providers: unknown provider %q", id)
		}
	}
	return nil
}

// ProviderConfig returns the settings block for id (zero value when absent).
func (s *Settings) ProviderConfig(id ProviderID) ProviderSettings {
	if s == nil || s.Providers == nil {
		return ProviderSettings{}
	}
	return s.Providers[id]
}

// HasCredentials reports whether the provider has what it needs to make calls.
func (s *Settings) HasCredentials(id ProviderID) bool {
	ps := s.ProviderConfig(id)
	switch id {
	case ProviderGemini, ProviderAnthropic, ProviderOpenAI:
		return ps.APIKey != ""
	case ProviderOllama, ProviderLMStudio:
		return ps.BaseURL != ""
	case ProviderMock:
		return true
	default:
		return false
	}
}

func decode(path string, data []byte, s *Settings) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.NewDecoder(bytes.NewReader(data)).Decode(s)
	}
	return yaml.Unmarshal(data, s)
}

func encode(path string, s *Settings) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Marshal(s)
	}
	return yaml.Marshal(s)
}

func applyEnv(s *Settings) {
	if s.Providers == nil {
		s.Providers = make(map[ProviderID]ProviderSettings)
	}
	setKey := func(id ProviderID, envVars ...string) {
		for _, envVar := range envVars {
			if val := os.Getenv(envVar); val != "" {
				ps := s.Providers[id]
				ps.APIKey = val
				s.Providers[id] = ps
				return
			}
		}
	}
	setKey(ProviderGemini, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	setKey(ProviderAnthropic, "ANTHROPIC_API_KEY")
	setKey(ProviderOpenAI, "OPENAI_API_KEY")

	if val := os.Getenv("NOTEFORGE_PROVIDER"); val != "" {
		s.Provider = ProviderID(strings.ToLower(val))
	}
}

func applyDefaults(s *Settings) {
	if s.Provider == "" {
		s.Provider = ProviderGemini
	}
	if s.ModelTier == "" {
		s.ModelTier = TierFast
	}
	if s.Providers == nil {
		s.Providers = make(map[ProviderID]ProviderSettings)
	}
	setBaseURL := func(id ProviderID, url string) {
		ps := s.Providers[id]
		if ps.BaseURL == "" {
			ps.BaseURL = url
			s.Providers[id] = ps
		}
	}
	setBaseURL(ProviderOllama, "http://localhost:11434")
	setBaseURL(ProviderLMStudio, "http://localhost:1234")
	setBaseURL(ProviderOpenAI, "https://api.openai.com/v1")
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "console"
	}
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("NOTEFORGE_CONFIG_DIR"); dir != "" {
		return dir, os.MkdirAll(dir, 0o755)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".noteforge")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", err
	}
	return configDir, nil
}
