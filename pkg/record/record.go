// Package record writes a per-run bundle of metadata, stage records and the
// finished note to disk.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zen-systems/noteforge/pkg/pipeline"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Topic        string            `json:"topic"`
	Title        string            `json:"title,omitempty"`
	Provider     string            `json:"provider"`
	Model        string            `json:"model,omitempty"`
	ModelTier    string            `json:"model_tier"`
	InputHash    string            `json:"input_hash"`
	GenerateHTML bool              `json:"generate_html"`
	Status       string            `json:"status"`
	FailedStage  string            `json:"failed_stage,omitempty"`
	Error        string            `json:"error,omitempty"`
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
}

// StageRecord captures the outcome of a single stage.
type StageRecord struct {
	Name            string  `json:"name"`
	Model           string  `json:"model,omitempty"`
	PromptHash      string  `json:"prompt_hash,omitempty"`
	OutputHash      string  `json:"output_hash,omitempty"`
	Chars           int     `json:"chars"`
	DurationMillis  int64   `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second,omitempty"`
	Skipped         bool    `json:"skipped"`
}

// Writer writes run bundles to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(filepath.Join(runDir, "stages"), 0o700); err != nil {
		return nil, err
	}

	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteStage writes a stage record to stages/<stage>.json.
func (w *Writer) WriteStage(record StageRecord) error {
	if record.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	path := filepath.Join(w.runDir, "stages", fmt.Sprintf("%s.json", record.Name))
	return writeJSON(path, record)
}

// WriteNote writes note.md and, when html is non-empty, note.html.
func (w *Writer) WriteNote(markdown, html string) error {
	if err := os.WriteFile(filepath.Join(w.runDir, "note.md"), []byte(markdown), 0o600); err != nil {
		return err
	}
	if html == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(w.runDir, "note.html"), []byte(html), 0o600)
}

// Hash returns the hex SHA-256 of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Recorder turns pipeline events into stage records as they arrive.
type Recorder struct {
	w       *Writer
	model   string
	prompts map[pipeline.StageID]string
}

// NewRecorder hashes the prompt template of each definition up front.
func NewRecorder(w *Writer, model string, defs []pipeline.StageDefinition) *Recorder {
	prompts := make(map[pipeline.StageID]string, len(defs))
	for _, def := range defs {
		prompts[def.ID] = Hash(def.Prompt)
	}
	return &Recorder{w: w, model: model, prompts: prompts}
}

// Observe writes a stage record for stage_end and skipped events and ignores
// everything else.
func (r *Recorder) Observe(ev pipeline.Event) error {
	switch ev.Type {
	case pipeline.EventStageEnd:
		return r.w.WriteStage(StageRecord{
			Name:            string(ev.Stage),
			Model:           r.model,
			PromptHash:      r.prompts[ev.Stage],
			OutputHash:      Hash(ev.Content),
			Chars:           len([]rune(ev.Content)),
			DurationMillis:  ev.Duration.Milliseconds(),
			TokensPerSecond: ev.TokensPerSecond,
		})
	case pipeline.EventSkipped:
		return r.w.WriteStage(StageRecord{
			Name:    string(ev.Stage),
			Skipped: true,
		})
	default:
		return nil
	}
}
