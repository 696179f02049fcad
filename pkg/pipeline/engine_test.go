package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/noteforge/pkg/provider"
)

func collectEvents(t *testing.T, run *Run) ([]Event, error) {
	t.Helper()
	var events []Event
	for ev, err := range run.Events(context.Background()) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func TestEngineEndToEndWithoutHTML(t *testing.T) {
	mock := scriptedProvider()
	engine := testEngine(mock)

	run, err := engine.Start("Photosynthesis converts light into chemical energy.", "Photosynthesis", testConfig(false))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	events, err := collectEvents(t, run)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var ended []StageID
	for _, ev := range events {
		switch ev.Type {
		case EventStageEnd:
			if strings.TrimSpace(ev.Content) == "" {
				t.Fatalf("stage %s ended with empty content", ev.Stage)
			}
			ended = append(ended, ev.Stage)
		case EventStageStart:
			if ev.Stage == StageHTMLTranslator {
				t.Fatal("html translator must not start when disabled")
			}
		}
	}
	want := []StageID{StageSynthesizer, StageCondenser, StageEnhancer, StageMermaidValidator, StageFinalizer}
	if len(ended) != len(want) {
		t.Fatalf("ended stages = %v, want %v", ended, want)
	}
	for i := range want {
		if ended[i] != want[i] {
			t.Fatalf("ended stages = %v, want %v", ended, want)
		}
	}

	last := events[len(events)-1]
	if last.Type != EventSkipped || last.Stage != StageHTMLTranslator {
		t.Fatalf("last event = %+v, want skipped htmlTranslator", last)
	}
	if got, _ := run.Outputs().Get(StageHTMLTranslator); got != SkipMarker {
		t.Fatalf("htmlTranslator output = %q, want %q", got, SkipMarker)
	}
	final, _ := run.Outputs().Get(StageFinalizer)
	if !strings.HasPrefix(final, "---") {
		t.Fatalf("finalizer output should start with frontmatter: %q", final)
	}
	if run.Status().Kind != StatusSucceeded {
		t.Fatalf("status = %v", run.Status())
	}
	if mock.CallCount() != 5 {
		t.Fatalf("provider calls = %d, want 5", mock.CallCount())
	}

	res, err := run.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Markdown != finalNote || res.HTML != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestEngineEventOrdering(t *testing.T) {
	run, err := testEngine(scriptedProvider()).Start("raw", "topic", testConfig(true))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var sequence []string
	for ev, err := range run.Events(context.Background()) {
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if ev.Type == EventStageStart {
			if st := run.Status(); st.Kind != StatusRunning || st.Stage != ev.Stage {
				t.Fatalf("status during %s = %v", ev.Stage, st)
			}
		}
		sequence = append(sequence, string(ev.Type)+":"+string(ev.Stage))
	}

	var want []string
	for _, id := range StageOrder() {
		want = append(want, "stage_start:"+string(id), "chunk:"+string(id), "stage_end:"+string(id))
	}
	if strings.Join(sequence, ",") != strings.Join(want, ",") {
		t.Fatalf("sequence:\n%v\nwant:\n%v", sequence, want)
	}

	html, _ := run.Outputs().Get(StageHTMLTranslator)
	if html != htmlDocument {
		t.Fatalf("html output = %q", html)
	}
}

func TestEngineChainsPreviousOutput(t *testing.T) {
	mock := scriptedProvider()
	run, _ := testEngine(mock).Start("raw notes", "topic", testConfig(false))
	if _, err := collectEvents(t, run); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	calls := mock.Calls()
	if !strings.Contains(calls[0].Prompt, "raw notes") {
		t.Fatalf("synthesizer prompt should embed the raw input")
	}
	if !strings.Contains(calls[1].Prompt, synthesizedDraft) || strings.Contains(calls[1].Prompt, "```markdown") {
		t.Fatalf("condenser prompt should embed the cleaned synthesizer output:\n%s", calls[1].Prompt)
	}
	if !strings.Contains(calls[4].Prompt, validatedDraft) {
		t.Fatalf("finalizer prompt should embed the validator output")
	}
}

func TestEngineRejectsEmptyInputBeforeProviderCalls(t *testing.T) {
	mock := scriptedProvider()
	engine := testEngine(mock)

	_, err := engine.Start("   ", "Photosynthesis", testConfig(false))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Error() != "input is empty" {
		t.Fatalf("expected input validation error, got %v", err)
	}
	_, err = engine.Start("text", "", testConfig(false))
	if !errors.As(err, &vErr) || vErr.Field != "topic" {
		t.Fatalf("expected topic validation error, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("provider calls = %d, want 0", mock.CallCount())
	}
}

func TestEngineStageFailureAbortsRun(t *testing.T) {
	invalid := errors.New("API key not valid. Please pass a valid API key.")
	mock := provider.NewMockProvider().
		Respond("ROLE: Knowledge Synthesizer", synthesizedDraft).
		Respond("ROLE: Knowledge Condenser", condensedDraft).
		FailOn("ROLE: Knowledge Enhancer", invalid)

	run, _ := testEngine(mock).Start("raw", "topic", testConfig(true))
	events, err := collectEvents(t, run)

	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != StageEnhancer || perr.StageName() != "enhancer" {
		t.Fatalf("failed stage = %s", perr.Stage)
	}
	if !errors.Is(err, invalid) {
		t.Fatal("cause should be preserved")
	}
	if mock.CallCount() != 3 {
		t.Fatalf("provider calls = %d, want 3", mock.CallCount())
	}

	lastEvent := events[len(events)-1]
	if lastEvent.Type != EventStageStart || lastEvent.Stage != StageEnhancer {
		t.Fatalf("last event before failure = %+v", lastEvent)
	}
	if run.Outputs().Len() != 2 {
		t.Fatalf("committed outputs = %v", run.Outputs().Entries())
	}
	if _, ok := run.Outputs().Get(StageEnhancer); ok {
		t.Fatal("failed stage must not commit output")
	}
	st := run.Status()
	if st.Kind != StatusFailed || st.Stage != StageEnhancer || !errors.Is(st.Err, invalid) {
		t.Fatalf("status = %+v", st)
	}
	if _, err := run.Result(); err == nil {
		t.Fatal("Result should fail for a failed run")
	}
}

func TestEngineRetriesRateLimitedStage(t *testing.T) {
	mock := scriptedProvider().FailWith(errors.New("429 RESOURCE_EXHAUSTED"))
	run, _ := testEngine(mock).Start("raw", "topic", testConfig(false))

	if _, err := collectEvents(t, run); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if mock.CallCount() != 6 {
		t.Fatalf("provider calls = %d, want 6 (one retry)", mock.CallCount())
	}
}

func TestEngineStreamsChunks(t *testing.T) {
	mock := scriptedProvider().StreamChunks(8)
	cfg := testConfig(false)
	cfg.Streaming = true
	run, _ := testEngine(mock).Start("raw", "topic", cfg)

	chunks := make(map[StageID]string)
	ends := make(map[StageID]string)
	for ev, err := range run.Events(context.Background()) {
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		switch ev.Type {
		case EventChunk:
			if len(ev.Content) > 8 {
				t.Fatalf("chunk larger than stream size: %q", ev.Content)
			}
			chunks[ev.Stage] += ev.Content
		case EventStageEnd:
			ends[ev.Stage] = ev.Content
		}
	}

	if chunks[StageSynthesizer] != "```markdown\n"+synthesizedDraft+"\n```" {
		t.Fatalf("streamed synthesizer text = %q", chunks[StageSynthesizer])
	}
	if ends[StageSynthesizer] != synthesizedDraft {
		t.Fatalf("synthesizer stage_end = %q", ends[StageSynthesizer])
	}
}

func TestEngineReportsThroughput(t *testing.T) {
	engine := testEngine(scriptedProvider(), WithClock(stepClock(time.Second)))
	run, _ := engine.Start("raw", "topic", testConfig(false))

	for ev, err := range run.Events(context.Background()) {
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if ev.Type != EventStageEnd {
			continue
		}
		if ev.Duration != time.Second {
			t.Fatalf("duration = %v", ev.Duration)
		}
		want := float64(len(ev.Content)) / 4
		if ev.TokensPerSecond != want {
			t.Fatalf("%s tokens/s = %v, want %v", ev.Stage, ev.TokensPerSecond, want)
		}
	}
}

func TestTokensPerSecondNeedsWindow(t *testing.T) {
	if got := tokensPerSecond(4000, 100*time.Millisecond); got != 0 {
		t.Fatalf("early reading = %v, want 0", got)
	}
	if got := tokensPerSecond(4000, 2*time.Second); got != 500 {
		t.Fatalf("rate = %v, want 500", got)
	}
}

func TestRunEventsConsumedOnce(t *testing.T) {
	run, _ := testEngine(scriptedProvider()).Start("raw", "topic", testConfig(false))
	if _, err := collectEvents(t, run); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	_, err := collectEvents(t, run)
	if !errors.Is(err, ErrRunConsumed) {
		t.Fatalf("second pass error = %v, want ErrRunConsumed", err)
	}
}

func TestRunStopsWhenConsumerBreaks(t *testing.T) {
	mock := scriptedProvider()
	run, _ := testEngine(mock).Start("raw", "topic", testConfig(false))

	for ev, err := range run.Events(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Type == EventStageEnd {
			break
		}
	}

	if mock.CallCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", mock.CallCount())
	}
	st := run.Status()
	if st.Kind != StatusFailed || !errors.Is(st.Err, ErrRunAbandoned) {
		t.Fatalf("status = %+v", st)
	}
}

func TestRunCompletesWhenConsumerBreaksOnFinalEvent(t *testing.T) {
	tests := []struct {
		name         string
		generateHTML bool
		final        EventType
	}{
		{"skipped html", false, EventSkipped},
		{"html stage end", true, EventStageEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, _ := testEngine(scriptedProvider()).Start("raw", "topic", testConfig(tt.generateHTML))

			for ev, err := range run.Events(context.Background()) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ev.Stage == StageHTMLTranslator && ev.Type == tt.final {
					break
				}
			}

			if st := run.Status(); st.Kind != StatusSucceeded {
				t.Fatalf("status = %+v, want succeeded", st)
			}
			res, err := run.Result()
			if err != nil {
				t.Fatalf("Result: %v", err)
			}
			if res.Markdown != finalNote || len(res.Outputs) != len(StageOrder()) {
				t.Fatalf("result = %+v", res)
			}
		})
	}
}

func TestRunsHaveIsolatedOutputs(t *testing.T) {
	engine := testEngine(scriptedProvider())
	a, _ := engine.Start("raw a", "topic", testConfig(false))
	b, _ := engine.Start("raw b", "topic", testConfig(false))

	if _, err := collectEvents(t, a); err != nil {
		t.Fatalf("run a: %v", err)
	}
	if b.Outputs().Len() != 0 || a.ID == b.ID {
		t.Fatal("runs must not share state")
	}
}
