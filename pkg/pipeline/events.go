package pipeline

import "time"

// EventType discriminates pipeline progress events.
type EventType string

const (
	EventStageStart EventType = "stage_start"
	EventChunk      EventType = "chunk"
	EventStageEnd   EventType = "stage_end"
	EventSkipped    EventType = "skipped"
)

// Event is one item of a run's progress sequence.
type Event struct {
	Type  EventType `json:"type"`
	Stage StageID   `json:"stage"`
	// Content is the delta for chunk events and the committed output for
	// stage_end events.
	Content string `json:"content,omitempty"`
	// TokensPerSecond is an approximate generation rate. Zero until enough
	// time has elapsed for a stable reading.
	TokensPerSecond float64       `json:"tokens_per_second,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
}

const (
	charsPerToken = 4
	minRateWindow = 200 * time.Millisecond
)

// tokensPerSecond converts a character count into an approximate token rate.
func tokensPerSecond(chars int, elapsed time.Duration) float64 {
	if elapsed <= minRateWindow || chars <= 0 {
		return 0
	}
	return float64(chars) / charsPerToken / elapsed.Seconds()
}
