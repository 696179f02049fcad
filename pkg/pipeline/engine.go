package pipeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/observe"
	"github.com/zen-systems/noteforge/pkg/provider"
	"github.com/zen-systems/noteforge/pkg/retry"
)

// Config is fixed for the lifetime of a run.
type Config struct {
	Provider         config.ProviderID
	ModelTier        config.ModelTier
	Model            string
	GenerateHTML     bool
	ReasoningEnabled bool
	Streaming        bool
}

// ConfigFromSettings resolves a run config for the active provider.
func ConfigFromSettings(s *config.Settings, tier config.ModelTier, generateHTML bool) Config {
	if tier == "" {
		tier = s.ModelTier
	}
	return Config{
		Provider:         s.Provider,
		ModelTier:        tier,
		Model:            s.ModelFor(tier),
		GenerateHTML:     generateHTML,
		ReasoningEnabled: s.ReasoningModeEnabled,
		Streaming:        s.StreamingEnabled,
	}
}

// disableThinking maps the fast tier without reasoning mode onto a zero
// thinking budget.
func (c Config) disableThinking() bool {
	return c.ModelTier != config.TierHighQuality && !c.ReasoningEnabled
}

// Engine drives the fixed stage sequence against one provider. An Engine
// holds no run state and may start any number of runs.
type Engine struct {
	provider provider.Provider
	obs      *observe.Context
	exec     *retry.Executor
	defs     []StageDefinition
	now      func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithDefinitions replaces the stage definitions (for example from a manifest).
// Definitions are looked up by id; the order is always StageOrder.
func WithDefinitions(defs []StageDefinition) EngineOption {
	return func(e *Engine) {
		if len(defs) > 0 {
			e.defs = defs
		}
	}
}

// WithExecutor replaces the retry executor.
func WithExecutor(exec *retry.Executor) EngineOption {
	return func(e *Engine) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithClock replaces time.Now for duration and throughput reporting.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine for p.
func NewEngine(p provider.Provider, obs *observe.Context, opts ...EngineOption) *Engine {
	if obs == nil {
		obs = observe.Discard()
	}
	e := &Engine{
		provider: p,
		obs:      obs,
		defs:     DefaultDefinitions(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.exec == nil {
		e.exec = retry.New(obs.Logger())
	}
	return e
}

// Start validates the input and prepares a run. No provider call is made
// until the run's events are consumed.
func (e *Engine) Start(rawInput, topic string, cfg Config) (*Run, error) {
	if strings.TrimSpace(rawInput) == "" {
		return nil, &ValidationError{Field: "input", Msg: "input is empty"}
	}
	if strings.TrimSpace(topic) == "" {
		return nil, &ValidationError{Field: "topic", Msg: "topic is required"}
	}

	defs := make([]StageDefinition, 0, len(StageOrder()))
	for _, id := range StageOrder() {
		def, err := definitionFor(e.defs, id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	id := uuid.NewString()
	return &Run{
		ID:       id,
		rawInput: rawInput,
		topic:    strings.TrimSpace(topic),
		cfg:      cfg,
		defs:     defs,
		runner: NewStageRunner(e.provider, e.exec, RunnerOptions{
			Model:           cfg.Model,
			DisableThinking: cfg.disableThinking(),
			Streaming:       cfg.Streaming,
		}),
		outputs: newStageOutputs(),
		logger:  e.obs.Logger().With(slog.String("run_id", id)),
		now:     e.now,
	}, nil
}

// Run is one execution of the pipeline. Its event sequence can be consumed
// once; the outputs and status remain readable afterwards.
type Run struct {
	ID string

	rawInput string
	topic    string
	cfg      Config
	defs     []StageDefinition
	runner   *StageRunner
	outputs  *StageOutputs
	logger   *slog.Logger
	now      func() time.Time

	consumed atomic.Bool
	mu       sync.Mutex
	status   Status
}

// Topic returns the run's topic.
func (r *Run) Topic() string {
	return r.topic
}

// Config returns the run's configuration.
func (r *Run) Config() Config {
	return r.cfg
}

// Outputs returns the committed stage outputs.
func (r *Run) Outputs() *StageOutputs {
	return r.outputs
}

// Status returns a snapshot of the run state.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) setStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Kind == StatusSucceeded || r.status.Kind == StatusFailed {
		return
	}
	r.status = s
}

// Events returns the lazy progress sequence. Each provider call happens while
// the consumer is ranging; breaking out of the loop cancels the in-flight call
// and abandons the run. A failure is delivered as the final item, wrapped in
// a PipelineError.
func (r *Run) Events(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			yield(Event{}, ErrRunConsumed)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		accumulated := r.rawInput
		for i, def := range r.defs {
			last := i == len(r.defs)-1
			if def.ID == StageHTMLTranslator && !r.cfg.GenerateHTML {
				_ = r.outputs.commit(def.ID, SkipMarker)
				r.logger.Info("stage skipped", slog.String("stage", string(def.ID)))
				if last {
					r.complete()
				}
				if !yield(Event{Type: EventSkipped, Stage: def.ID}, nil) {
					if !last {
						r.abandon(def.ID)
					}
					return
				}
				continue
			}

			out, ok := r.runStage(ctx, cancel, def, accumulated, last, yield)
			if !ok {
				return
			}
			accumulated = out
		}
	}
}

// complete marks the run succeeded. It happens before the final event is
// yielded, so a consumer that stops on that event still sees a finished run.
func (r *Run) complete() {
	r.setStatus(Status{Kind: StatusSucceeded})
	r.logger.Info("pipeline complete", slog.Int("stages", r.outputs.Len()))
}

// runStage emits the events of one stage. It reports false when the sequence
// must end, either because the consumer stopped or the stage failed. When last
// is set the run completes once the output is committed.
func (r *Run) runStage(ctx context.Context, cancel context.CancelFunc, def StageDefinition, previous string, last bool, yield func(Event, error) bool) (string, bool) {
	logger := r.logger.With(slog.String("stage", string(def.ID)))
	r.setStatus(Status{Kind: StatusRunning, Stage: def.ID})
	logger.Info("stage started")
	if !yield(Event{Type: EventStageStart, Stage: def.ID}, nil) {
		r.abandon(def.ID)
		return "", false
	}

	start := r.now()
	var (
		streamedChars int
		streamed      bool
		stopped       bool
	)
	emit := func(delta string) {
		if stopped {
			return
		}
		streamed = true
		streamedChars += len(delta)
		ev := Event{
			Type:            EventChunk,
			Stage:           def.ID,
			Content:         delta,
			TokensPerSecond: tokensPerSecond(streamedChars, r.now().Sub(start)),
		}
		if !yield(ev, nil) {
			stopped = true
			cancel()
		}
	}

	out, err := r.runner.Run(ctx, def, previous, r.topic, emit)
	if stopped {
		r.abandon(def.ID)
		return "", false
	}
	if err != nil {
		perr := &PipelineError{Stage: def.ID, Err: err}
		r.setStatus(Status{Kind: StatusFailed, Stage: def.ID, Err: perr})
		logger.Error("stage failed", slog.String("error", err.Error()))
		yield(Event{}, perr)
		return "", false
	}

	elapsed := r.now().Sub(start)
	rate := tokensPerSecond(len(out), elapsed)
	if !streamed {
		if !yield(Event{Type: EventChunk, Stage: def.ID, Content: out, TokensPerSecond: rate}, nil) {
			r.abandon(def.ID)
			return "", false
		}
	}

	if err := r.outputs.commit(def.ID, out); err != nil {
		perr := &PipelineError{Stage: def.ID, Err: err}
		r.setStatus(Status{Kind: StatusFailed, Stage: def.ID, Err: perr})
		yield(Event{}, perr)
		return "", false
	}
	logger.Info("stage finished",
		slog.Int("chars", len(out)),
		slog.Duration("duration", elapsed),
	)
	if last {
		r.complete()
	}
	end := Event{Type: EventStageEnd, Stage: def.ID, Content: out, TokensPerSecond: rate, Duration: elapsed}
	if !yield(end, nil) {
		if !last {
			r.abandon(def.ID)
		}
		return "", false
	}
	return out, true
}

func (r *Run) abandon(stage StageID) {
	r.setStatus(Status{Kind: StatusFailed, Stage: stage, Err: ErrRunAbandoned})
	r.logger.Warn("pipeline abandoned by consumer", slog.String("stage", string(stage)))
}

// Result holds the terminal artifacts of a successful run.
type Result struct {
	RunID    string
	Topic    string
	Markdown string
	// HTML is empty when the translation stage was skipped.
	HTML    string
	Outputs []StageOutput
}

// Result returns the terminal artifacts. It fails unless the run succeeded.
func (r *Run) Result() (Result, error) {
	st := r.Status()
	if st.Kind != StatusSucceeded {
		if st.Err != nil {
			return Result{}, st.Err
		}
		return Result{}, errors.New("pipeline run has not completed")
	}
	res := Result{RunID: r.ID, Topic: r.topic, Outputs: r.outputs.Entries()}
	res.Markdown, _ = r.outputs.Get(StageFinalizer)
	if html, ok := r.outputs.Get(StageHTMLTranslator); ok && html != SkipMarker {
		res.HTML = html
	}
	return res, nil
}

// Collect drains the event sequence, passing each event to onEvent (which may
// be nil), and returns the result.
func (r *Run) Collect(ctx context.Context, onEvent func(Event)) (Result, error) {
	for ev, err := range r.Events(ctx) {
		if err != nil {
			return Result{}, err
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
	return r.Result()
}
