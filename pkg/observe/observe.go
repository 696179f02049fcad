// Package observe carries the logger and error manager that the pipeline and
// provider clients share. A Context is constructed once per process (or per
// test) and passed in explicitly.
package observe

import (
	"log/slog"

	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/logging"
)

// Context bundles process-wide observability collaborators.
type Context struct {
	logger *slog.Logger
	errors *apperr.Manager
}

// New creates a context around logger. A nil logger discards output.
func New(logger *slog.Logger) *Context {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Context{
		logger: logger,
		errors: apperr.NewManager(logger),
	}
}

// Discard returns a context whose logger drops every record.
func Discard() *Context {
	return New(nil)
}

// Logger returns the structured logger. Safe on a nil Context.
func (c *Context) Logger() *slog.Logger {
	if c == nil {
		return logging.Discard()
	}
	return c.logger
}

// Errors returns the error manager. Safe on a nil Context.
func (c *Context) Errors() *apperr.Manager {
	if c == nil {
		return apperr.NewManager(nil)
	}
	return c.errors
}

// With returns a context whose logger carries the given attributes and shares
// the same error manager.
func (c *Context) With(args ...any) *Context {
	if c == nil {
		c = Discard()
	}
	return &Context{logger: c.logger.With(args...), errors: c.errors}
}
