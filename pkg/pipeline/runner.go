package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/noteforge/pkg/provider"
	"github.com/zen-systems/noteforge/pkg/retry"
)

// BuildPrompt assembles a stage prompt: the topic line, the template body and
// a fenced block holding the previous stage's output.
func BuildPrompt(template, previousOutput, topic string) string {
	fence := fenceFor(previousOutput)

	var sb strings.Builder
	fmt.Fprintf(&sb, "CONTEXT TOPIC: \"%s\"\n\n", topic)
	sb.WriteString(strings.TrimSpace(template))
	sb.WriteString("\n\n")
	sb.WriteString(fence)
	sb.WriteString("\n")
	sb.WriteString(previousOutput)
	sb.WriteString("\n")
	sb.WriteString(fence)
	sb.WriteString("\n")
	return sb.String()
}

// fenceFor returns a backtick fence longer than any backtick run in content,
// so embedded code blocks cannot close it early.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

var leadingFences = []string{"```markdown", "```html"}

// StripFences removes one leading ```markdown or ```html fence and, when it
// did, one trailing ``` fence. Unlike stripping each fence independently, a
// trailing ``` without a leading fence is kept: it closes a diagram or code
// block at the end of the document, so "X\n```" passes through unchanged.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	for _, fence := range leadingFences {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimSpace(strings.TrimPrefix(text, fence))
			text = strings.TrimSuffix(text, "```")
			break
		}
	}
	return strings.TrimSpace(text)
}

// RunnerOptions configures a StageRunner.
type RunnerOptions struct {
	Model           string
	DisableThinking bool
	// Streaming lets the runner use provider.Streamer when available.
	Streaming bool
}

// StageRunner executes one stage: prompt assembly, generation through the
// retry executor, fence stripping and the non-empty check.
type StageRunner struct {
	provider provider.Provider
	exec     *retry.Executor
	opts     RunnerOptions
}

// NewStageRunner creates a runner. A nil executor gets the default policy.
func NewStageRunner(p provider.Provider, exec *retry.Executor, opts RunnerOptions) *StageRunner {
	if exec == nil {
		exec = retry.New(nil)
	}
	return &StageRunner{provider: p, exec: exec, opts: opts}
}

// Run executes def against previousOutput. When streaming is enabled and the
// provider supports it, raw deltas are passed to emit as they arrive.
func (r *StageRunner) Run(ctx context.Context, def StageDefinition, previousOutput, topic string, emit func(string)) (string, error) {
	kind := def.OutputKind
	if kind == "" {
		kind = outputKindFor(def.ID)
	}
	req := provider.Request{
		Prompt:          BuildPrompt(def.Prompt, previousOutput, topic),
		Temperature:     kind.Temperature(),
		Model:           r.opts.Model,
		DisableThinking: r.opts.DisableThinking,
	}

	streamer, canStream := r.provider.(provider.Streamer)
	raw, err := r.exec.Execute(ctx, string(def.ID), func(ctx context.Context) (string, error) {
		if canStream && r.opts.Streaming && emit != nil {
			return streamer.StreamText(ctx, req, emit)
		}
		return r.provider.GenerateText(ctx, req)
	})
	if err != nil {
		return "", err
	}

	cleaned := StripFences(raw)
	if cleaned == "" {
		return "", &EmptyStageOutputError{Stage: def.ID}
	}
	return cleaned, nil
}
