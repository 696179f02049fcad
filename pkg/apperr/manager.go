package apperr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ActionKind identifies a follow-up the user can take from a notification.
type ActionKind string

const (
	ActionRetry        ActionKind = "retry"
	ActionOpenSettings ActionKind = "open-settings"
)

// Action is a button-like suggestion attached to a notification.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
}

// Notification is the user-facing summary of a high or critical failure.
type Notification struct {
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Actions  []Action       `json:"actions,omitempty"`
	Error    *EnhancedError `json:"-"`
}

// stageFailure is implemented by errors that know which pipeline stage failed.
type stageFailure interface {
	error
	StageName() string
}

// Manager classifies failures and keeps the process-lifetime error log.
type Manager struct {
	mu            sync.Mutex
	log           []*EnhancedError
	notifications []Notification
	logger        *slog.Logger
	now           func() time.Time
}

// NewManager creates a manager. A nil logger disables log output.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger, now: time.Now}
}

// Classify converts a raw error into an EnhancedError without recording it.
// Stage failures contribute their stage name as context and their cause as the
// message, so the stage label never influences marker matching.
func Classify(err error, errContext string) *EnhancedError {
	return classifyAt(err, errContext, time.Now())
}

func classifyAt(err error, errContext string, now time.Time) *EnhancedError {
	if err == nil {
		return nil
	}

	var existing *EnhancedError
	if errors.As(err, &existing) {
		return existing
	}

	msg := err.Error()
	var details string
	var sf stageFailure
	if errors.As(err, &sf) {
		if errContext == "" || errContext == ContextSetup {
			errContext = sf.StageName()
		}
		if cause := errors.Unwrap(sf); cause != nil {
			details = msg
			msg = cause.Error()
		}
	}

	code := inferCode(msg, errContext)
	return &EnhancedError{
		Code:       code,
		Category:   code.Category(),
		Severity:   code.Severity(),
		Context:    errContext,
		Message:    msg,
		Details:    details,
		Retryable:  code.Retryable(),
		UserAction: code.UserAction(),
		Timestamp:  now.UTC(),
		cause:      err,
	}
}

// Handle classifies err, appends it to the error log and, for high and
// critical severities, synthesizes a notification.
func (m *Manager) Handle(err error, errContext string) (*EnhancedError, *Notification) {
	enhanced := classifyAt(err, errContext, m.now())
	if enhanced == nil {
		return nil, nil
	}

	m.mu.Lock()
	m.log = append(m.log, enhanced)
	m.mu.Unlock()

	m.logError(enhanced)

	if enhanced.Severity != SeverityHigh && enhanced.Severity != SeverityCritical {
		return enhanced, nil
	}

	n := buildNotification(enhanced)
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()
	return enhanced, &n
}

// Errors returns a snapshot of the error log in insertion order.
func (m *Manager) Errors() []*EnhancedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*EnhancedError, len(m.log))
	copy(out, m.log)
	return out
}

// Notifications returns a snapshot of emitted notifications.
func (m *Manager) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// Clear empties the error log and notifications.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
	m.notifications = nil
}

func (m *Manager) logError(e *EnhancedError) {
	if m.logger == nil {
		return
	}
	level := slog.LevelWarn
	if e.Severity == SeverityHigh || e.Severity == SeverityCritical {
		level = slog.LevelError
	}
	m.logger.Log(context.Background(), level, "error classified",
		"code", string(e.Code),
		"name", e.Code.Name(),
		"severity", string(e.Severity),
		"context", e.Context,
		"retryable", e.Retryable,
		"message", e.Message,
	)
}

func buildNotification(e *EnhancedError) Notification {
	title := cases.Title(language.English).String(string(e.Severity)) + " Error"
	message := e.UserAction
	if message == "" {
		message = e.Message
	}

	var actions []Action
	if e.Retryable {
		actions = append(actions, Action{Kind: ActionRetry, Label: "Retry"})
	}
	switch e.Code {
	case APIKeyMissing, APIKeyInvalid, APIQuotaExceeded, ConfigMissingSetting, ConfigInvalidValue:
		actions = append(actions, Action{Kind: ActionOpenSettings, Label: "Open settings"})
	}

	return Notification{
		Title:    title,
		Message:  message,
		Severity: e.Severity,
		Actions:  actions,
		Error:    e,
	}
}
