package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/observe"
	"github.com/zen-systems/noteforge/pkg/pipeline"
)

// reportedError marks a failure already printed to stderr.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func colorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(enabled bool, color text.Color, s string) string {
	if !enabled {
		return s
	}
	return color.Sprint(s)
}

// reportFailure classifies err, prints it to stderr and returns an error that
// main will not print again.
func reportFailure(obs *observe.Context, err error, errContext string) error {
	var failure *pipeline.PipelineError
	if errors.As(err, &failure) {
		errContext = string(failure.Stage)
	}
	enhanced, notification := obs.Errors().Handle(err, errContext)
	if enhanced == nil {
		return nil
	}
	printFailure(os.Stderr, colorEnabled(os.Stderr), enhanced, notification)
	return &reportedError{err: enhanced}
}

func printFailure(w io.Writer, color bool, e *apperr.EnhancedError, n *apperr.Notification) {
	fmt.Fprintf(w, "%s %s (%s)\n", paint(color, text.FgRed, "✗"), e.Title(), e.Code)
	fmt.Fprintf(w, "  severity: %s\n", e.Severity)
	if e.Context != "" {
		fmt.Fprintf(w, "  stage:    %s\n", e.Context)
	}
	fmt.Fprintf(w, "  message:  %s\n", e.Message)
	if e.UserAction != "" {
		fmt.Fprintf(w, "  action:   %s\n", e.UserAction)
	}
	if n == nil {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", paint(color, text.FgHiRed, "!"), paint(color, text.Bold, n.Title))
	fmt.Fprintf(w, "  %s\n", n.Message)
	if len(n.Actions) > 0 {
		labels := make([]string, 0, len(n.Actions))
		for _, a := range n.Actions {
			labels = append(labels, a.Label)
		}
		fmt.Fprintf(w, "  actions: %s\n", strings.Join(labels, ", "))
	}
}

// progress renders pipeline events on a terminal stream.
type progress struct {
	w       io.Writer
	color   bool
	verbose bool
}

func newProgress(w *os.File, verbose bool) *progress {
	return &progress{w: w, color: colorEnabled(w), verbose: verbose}
}

func (p *progress) Event(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventStageStart:
		fmt.Fprintf(p.w, "%s %s\n", paint(p.color, text.FgCyan, "▶"), ev.Stage)
	case pipeline.EventChunk:
		if p.verbose {
			fmt.Fprint(p.w, paint(p.color, text.Faint, ev.Content))
		}
	case pipeline.EventStageEnd:
		if p.verbose {
			fmt.Fprintln(p.w)
		}
		line := fmt.Sprintf("%s %s %s", paint(p.color, text.FgGreen, "✓"), ev.Stage, ev.Duration.Round(time.Millisecond))
		if ev.TokensPerSecond > 0 {
			line += fmt.Sprintf(" (~%.0f tok/s)", ev.TokensPerSecond)
		}
		fmt.Fprintln(p.w, line)
	case pipeline.EventSkipped:
		fmt.Fprintf(p.w, "%s %s skipped\n", paint(p.color, text.FgYellow, "-"), ev.Stage)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}
