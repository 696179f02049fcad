package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/noteforge/pkg/provider"
	"github.com/zen-systems/noteforge/pkg/retry"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("ROLE: Test\nDo things.", "previous text", "Cell Biology")
	want := "CONTEXT TOPIC: \"Cell Biology\"\n\nROLE: Test\nDo things.\n\n```\nprevious text\n```\n"
	if got != want {
		t.Fatalf("BuildPrompt =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildPromptKeepsTopicVerbatim(t *testing.T) {
	got := BuildPrompt("tmpl", "prev", `The "Krebs" cycle`)
	if !strings.HasPrefix(got, "CONTEXT TOPIC: \"The \"Krebs\" cycle\"\n\n") {
		t.Fatalf("topic line = %q", strings.SplitN(got, "\n", 2)[0])
	}
}

func TestBuildPromptLengthensFenceAroundCodeBlocks(t *testing.T) {
	prev := "text\n```mermaid\ngraph LR\n```"
	got := BuildPrompt("tmpl", prev, "t")
	if !strings.Contains(got, "````\n"+prev+"\n````") {
		t.Fatalf("previous output should be wrapped in a longer fence:\n%s", got)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown fence", "```markdown\nX\n```", "X"},
		{"no fence", "X", "X"},
		{"html fence", "```html\n<p>x</p>\n```", "<p>x</p>"},
		{"surrounding whitespace", "\n\n  ```markdown\nX\n```  \n", "X"},
		{"nested fence kept", "```markdown\n```html\nY\n```\n```", "```html\nY\n```"},
		{"trailing diagram kept without leading fence", "Intro\n```mermaid\ngraph LR\n```", "Intro\n```mermaid\ngraph LR\n```"},
		{"lone trailing fence kept", "X\n```", "X\n```"},
		{"missing closing fence", "```markdown\nX", "X"},
		{"only fences", "```markdown\n```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFences(tt.in)
			if got != tt.want {
				t.Fatalf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := StripFences(got); again != got && tt.name != "nested fence kept" {
				t.Fatalf("second pass changed %q to %q", got, again)
			}
		})
	}
}

func TestStageRunnerTemperatureByOutputKind(t *testing.T) {
	mock := provider.NewMockProvider().SetDefault("ok")
	runner := NewStageRunner(mock, retry.New(nil, retry.WithSleep(noSleep)), RunnerOptions{Model: "mock-1", DisableThinking: true})

	for _, id := range []StageID{StageSynthesizer, StageHTMLTranslator} {
		def, err := definitionFor(DefaultDefinitions(), id)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := runner.Run(context.Background(), def, "prev", "topic", nil); err != nil {
			t.Fatalf("Run(%s): %v", id, err)
		}
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d", len(calls))
	}
	if calls[0].Temperature != 0.6 || calls[1].Temperature != 0.2 {
		t.Fatalf("temperatures = %v, %v; want 0.6, 0.2", calls[0].Temperature, calls[1].Temperature)
	}
	if !calls[0].DisableThinking || calls[0].Model != "mock-1" {
		t.Fatalf("unexpected request %+v", calls[0])
	}
	if !strings.HasPrefix(calls[0].Prompt, `CONTEXT TOPIC: "topic"`) {
		t.Fatalf("prompt should start with the topic line: %q", calls[0].Prompt)
	}
}

func TestStageRunnerEmptyOutput(t *testing.T) {
	mock := provider.NewMockProvider().Respond("ROLE: Knowledge Condenser", "```markdown\n   \n```")
	runner := NewStageRunner(mock, nil, RunnerOptions{Model: "mock-1"})
	def, _ := definitionFor(DefaultDefinitions(), StageCondenser)

	_, err := runner.Run(context.Background(), def, "prev", "topic", nil)
	var emptyErr *EmptyStageOutputError
	if !errors.As(err, &emptyErr) || emptyErr.Stage != StageCondenser {
		t.Fatalf("expected EmptyStageOutputError for condenser, got %v", err)
	}
}
