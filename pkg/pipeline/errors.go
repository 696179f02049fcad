package pipeline

import (
	"errors"
	"fmt"
)

// ErrRunConsumed is returned when a run's event sequence is iterated twice.
var ErrRunConsumed = errors.New("pipeline run already consumed")

// ErrRunAbandoned marks a run whose consumer stopped iterating early.
var ErrRunAbandoned = errors.New("pipeline run abandoned by consumer")

// PipelineError tags a failure with the stage that produced it. The cause is
// not interpreted; classification happens at the caller.
type PipelineError struct {
	Stage StageID
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StageName returns the failing stage as a string.
func (e *PipelineError) StageName() string {
	return string(e.Stage)
}

// EmptyStageOutputError reports a stage whose cleaned output was empty.
type EmptyStageOutputError struct {
	Stage StageID
}

func (e *EmptyStageOutputError) Error() string {
	return fmt.Sprintf("stage %s produced empty output", e.Stage)
}

// ValidationError reports input rejected before any provider call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
