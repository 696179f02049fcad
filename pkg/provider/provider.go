// Package provider dispatches text-generation requests to LLM backends.
//
// Each backend is one type implementing Provider. Providers hold only
// configuration and a client, so a single instance may serve concurrent runs.
// A Provider makes exactly one outbound call per GenerateText; retrying is the
// caller's job (see package retry).
package provider

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Provider defines the interface for text-generation backends.
type Provider interface {
	// GenerateText sends the prompt to the model and returns the generated text.
	GenerateText(ctx context.Context, req Request) (string, error)

	// Name returns the provider identifier.
	Name() string

	// Models returns the model selectors this provider accepts.
	Models() []string
}

// Streamer is implemented by providers that can deliver text incrementally.
// emit receives each delta in arrival order; the return value is the full text.
type Streamer interface {
	Provider
	StreamText(ctx context.Context, req Request, emit func(delta string)) (string, error)
}

// Request is the per-call value object.
type Request struct {
	Prompt      string
	Temperature float64
	Model       string
	// DisableThinking asks providers with an extended reasoning mode to skip it.
	DisableThinking bool
}

// validate runs the checks every provider performs before network I/O.
func (r Request) validate(provider string, models []string) error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &RequestError{Provider: provider, Msg: "prompt is empty"}
	}
	if math.IsNaN(r.Temperature) || r.Temperature < 0 || r.Temperature > 1 {
		return &RequestError{Provider: provider, Msg: fmt.Sprintf("invalid value for temperature: %v (want 0..1)", r.Temperature)}
	}
	if r.Model == "" {
		return &ConfigError{Provider: provider, Msg: "model is not configured"}
	}
	if !slices.Contains(models, r.Model) {
		return &ConfigError{Provider: provider, Msg: fmt.Sprintf("model %q is not configured for %s", r.Model, provider)}
	}
	return nil
}
