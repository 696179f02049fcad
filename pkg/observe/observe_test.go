package observe

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithSharesErrorManager(t *testing.T) {
	var buf bytes.Buffer
	root := New(slog.New(slog.NewTextHandler(&buf, nil)))
	child := root.With("run_id", "abc")

	child.Errors().Handle(errors.New("429"), "synthesizer")
	if got := len(root.Errors().Errors()); got != 1 {
		t.Fatalf("root error log = %d, want 1", got)
	}

	child.Logger().Info("hello")
	if !strings.Contains(buf.String(), "run_id=abc") {
		t.Fatalf("missing attribute: %q", buf.String())
	}
}

func TestNilContextIsUsable(t *testing.T) {
	var c *Context
	c.Logger().Info("dropped")
	if c.Errors() == nil {
		t.Fatal("nil context should still return a manager")
	}
}
