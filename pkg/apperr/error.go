package apperr

import (
	"fmt"
	"time"
)

// Contexts that never fall back to PROCESSING_STAGE_FAILED.
const (
	ContextSetup = "setup"
	ContextTitle = "title-generation"
)

// EnhancedError is an immutable structured failure record.
type EnhancedError struct {
	Code       Code      `json:"code"`
	Category   Category  `json:"category"`
	Severity   Severity  `json:"severity"`
	Context    string    `json:"context,omitempty"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Retryable  bool      `json:"retryable"`
	UserAction string    `json:"user_action,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	cause error
}

func (e *EnhancedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Context, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EnhancedError) Unwrap() error {
	return e.cause
}

// Title is a short heading derived from the code name.
func (e *EnhancedError) Title() string {
	return e.Code.Name()
}
