// Package pipeline turns raw text into a finished knowledge note by running a
// fixed sequence of LLM stages, each rewriting the output of the one before.
//
// An Engine validates input and starts a Run; the Run's Events method yields
// progress lazily while the caller ranges over it. Failures are tagged with
// the stage that produced them and are otherwise passed through unchanged.
package pipeline

import (
	"context"
	"iter"

	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/observe"
	"github.com/zen-systems/noteforge/pkg/provider"
)

// Setup bundles the collaborators built from settings.
type Setup struct {
	Provider provider.Provider
	Manifest *Manifest
}

// NewSetup builds the active provider and loads the prompt manifest, if one
// is configured.
func NewSetup(ctx context.Context, s *config.Settings, obs *observe.Context) (*Setup, error) {
	p, err := provider.New(ctx, s, s.Provider, obs.Logger())
	if err != nil {
		return nil, err
	}
	setup := &Setup{Provider: p}
	if s.PromptManifest != "" {
		m, err := LoadManifest(s.PromptManifest)
		if err != nil {
			return nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		setup.Manifest = m
	}
	return setup, nil
}

// RunKnowledgePipeline builds the configured provider and returns the event
// sequence of a new run. Setup and validation failures are yielded as the
// only item, before any provider call.
func RunKnowledgePipeline(ctx context.Context, rawInput, topic string, generateHTML bool, tier config.ModelTier, s *config.Settings, obs *observe.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		setup, err := NewSetup(ctx, s, obs)
		if err != nil {
			yield(Event{}, err)
			return
		}
		engine := NewEngine(setup.Provider, obs, WithDefinitions(setup.Manifest.Definitions()))
		run, err := engine.Start(rawInput, topic, ConfigFromSettings(s, tier, generateHTML))
		if err != nil {
			yield(Event{}, err)
			return
		}
		for ev, err := range run.Events(ctx) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// GenerateTitle produces a title for content with the configured provider.
func GenerateTitle(ctx context.Context, content string, tier config.ModelTier, s *config.Settings, obs *observe.Context) (string, error) {
	setup, err := NewSetup(ctx, s, obs)
	if err != nil {
		return "", err
	}
	gen := NewTitleGenerator(setup.Provider, obs, nil, setup.Manifest.TitleTemplate())
	return gen.Generate(ctx, content, ConfigFromSettings(s, tier, false))
}
