package pipeline

import (
	"context"
	"time"

	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/provider"
	"github.com/zen-systems/noteforge/pkg/retry"
)

const (
	synthesizedDraft = "## Overview\n\nPhotosynthesis converts light into chemical energy."
	condensedDraft   = "## Overview\nLight becomes chemical energy."
	enhancedDraft    = "## Overview\nLight becomes chemical energy.\n\n```mermaid\ngraph TD; Light-->Glucose\n```"
	validatedDraft   = "## Overview\nLight becomes chemical energy.\n\n```mermaid\ngraph LR\n  A[\"Light\"] --> B[\"Glucose\"]\n```"
	finalNote        = "---\ntitle: \"Photosynthesis\"\ntags: [biology]\n---\n\n> [!summary] Summary\n> Light becomes chemical energy.\n\n# Photosynthesis"
	htmlDocument     = "<!DOCTYPE html><html><body><h1>Photosynthesis</h1></body></html>"
)

// scriptedProvider answers each stage prompt by its role line.
func scriptedProvider() *provider.MockProvider {
	return provider.NewMockProvider().
		Respond("ROLE: Knowledge Synthesizer", "```markdown\n"+synthesizedDraft+"\n```").
		Respond("ROLE: Knowledge Condenser", condensedDraft).
		Respond("ROLE: Knowledge Enhancer", enhancedDraft).
		Respond("ROLE: Mermaid Validator", "```markdown\n"+validatedDraft+"\n```").
		Respond("ROLE: Obsidian Finalizer", finalNote).
		Respond("ROLE: HTML Translator", "```html\n"+htmlDocument+"\n```").
		Respond("ROLE: Title Generator", "Photosynthesis Basics")
}

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig(generateHTML bool) Config {
	return Config{
		Provider:     config.ProviderMock,
		ModelTier:    config.TierFast,
		Model:        "mock-1",
		GenerateHTML: generateHTML,
	}
}

func testEngine(p provider.Provider, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithExecutor(retry.New(nil, retry.WithSleep(noSleep)))}, opts...)
	return NewEngine(p, nil, opts...)
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}
