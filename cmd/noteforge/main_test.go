package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/pipeline"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"abc", "****"},
		{"abcd", "****"},
		{"sk-1234567890", "****7890"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMaskedLeavesOriginal(t *testing.T) {
	s := config.Default()
	s.Providers[config.ProviderGemini] = config.ProviderSettings{APIKey: "secret-key-1234"}

	out := masked(s)
	if got := out.Providers[config.ProviderGemini].APIKey; got != "****1234" {
		t.Fatalf("masked key = %q", got)
	}
	if got := s.Providers[config.ProviderGemini].APIKey; got != "secret-key-1234" {
		t.Fatalf("original key changed to %q", got)
	}
}

func TestPrintFailure(t *testing.T) {
	err := &pipeline.PipelineError{Stage: pipeline.StageCondenser, Err: errors.New("429 Too Many Requests")}
	m := apperr.NewManager(nil)
	enhanced, notification := m.Handle(err, apperr.ContextSetup)
	if enhanced == nil {
		t.Fatal("expected classified error")
	}

	var buf bytes.Buffer
	printFailure(&buf, false, enhanced, notification)
	out := buf.String()

	for _, want := range []string{string(enhanced.Code), "stage:    condenser", "severity:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if notification != nil && !strings.Contains(out, notification.Title) {
		t.Errorf("output missing notification title %q:\n%s", notification.Title, out)
	}
}

func TestReportedError(t *testing.T) {
	base := errors.New("boom")
	if reported(base) {
		t.Fatal("plain error should not be marked reported")
	}
	wrapped := &reportedError{err: base}
	if !reported(wrapped) {
		t.Fatal("reportedError should be marked reported")
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("reportedError should unwrap to its cause")
	}
}

func TestProgressEvents(t *testing.T) {
	var buf bytes.Buffer
	p := &progress{w: &buf, verbose: true}

	p.Event(pipeline.Event{Type: pipeline.EventStageStart, Stage: pipeline.StageSynthesizer})
	p.Event(pipeline.Event{Type: pipeline.EventChunk, Stage: pipeline.StageSynthesizer, Content: "draft"})
	p.Event(pipeline.Event{Type: pipeline.EventStageEnd, Stage: pipeline.StageSynthesizer, Duration: 1500 * time.Millisecond, TokensPerSecond: 42})
	p.Event(pipeline.Event{Type: pipeline.EventSkipped, Stage: pipeline.StageHTMLTranslator})

	out := buf.String()
	for _, want := range []string{"▶ synthesizer", "draft", "✓ synthesizer 1.5s (~42 tok/s)", "- htmlTranslator skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCollectModelsKeepsOrder(t *testing.T) {
	s := config.Default()
	s.Providers[config.ProviderOllama] = config.ProviderSettings{BaseURL: "http://127.0.0.1:1"}

	ids := []config.ProviderID{config.ProviderMock, config.ProviderOllama, config.ProviderAnthropic}
	results := collectModels(context.Background(), s, ids)
	if len(results) != len(ids) {
		t.Fatalf("results = %d, want %d", len(results), len(ids))
	}
	for i, id := range ids {
		if results[i].id != id {
			t.Fatalf("results[%d].id = %s, want %s", i, results[i].id, id)
		}
	}
	if results[0].status != "ready" || len(results[0].models) == 0 {
		t.Fatalf("mock row = %+v", results[0])
	}
	if !strings.HasPrefix(results[1].status, "unavailable") {
		t.Fatalf("ollama row = %+v", results[1])
	}
	if results[2].status != "not configured" {
		t.Fatalf("anthropic row = %+v", results[2])
	}
}

func TestLoadSettingsAppliesFlags(t *testing.T) {
	t.Setenv("NOTEFORGE_PROVIDER", "")
	configFile = filepath.Join(t.TempDir(), "config.yaml")
	providerFlag = "mock"
	logLevelFlag = "debug"
	t.Cleanup(func() {
		configFile, providerFlag, logLevelFlag = "", "", ""
	})

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Provider != config.ProviderMock || s.Log.Level != "debug" {
		t.Fatalf("settings = provider %s, level %s", s.Provider, s.Log.Level)
	}

	providerFlag = "nope"
	if _, err := loadSettings(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\nROLE: Knowledge Synthesizer\nmore"); got != "ROLE: Knowledge Synthesizer" {
		t.Fatalf("firstLine = %q", got)
	}
}
