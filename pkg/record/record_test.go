package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/zen-systems/noteforge/pkg/pipeline"
)

func TestWriterBundle(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, "run-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	run := RunRecord{
		ID:        "run-123",
		Timestamp: time.Now().UTC(),
		Topic:     "Raft",
		Provider:  "mock",
		ModelTier: "fast",
		InputHash: Hash("input"),
		Status:    "succeeded",
	}
	if err := writer.WriteRun(run); err != nil {
		t.Fatalf("write run: %v", err)
	}
	if err := writer.WriteStage(StageRecord{Name: "synthesizer", Model: "mock-1"}); err != nil {
		t.Fatalf("write stage: %v", err)
	}
	if err := writer.WriteNote("# Note", ""); err != nil {
		t.Fatalf("write note: %v", err)
	}

	for _, rel := range []string{"run.json", filepath.Join("stages", "synthesizer.json"), "note.md"} {
		if _, err := os.Stat(filepath.Join(writer.RunDir(), rel)); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(writer.RunDir(), "note.html")); !os.IsNotExist(err) {
		t.Fatalf("note.html should not exist without html, stat err = %v", err)
	}

	if runtime.GOOS != "windows" {
		assertPerm(t, writer.RunDir(), 0o700)
		assertPerm(t, filepath.Join(writer.RunDir(), "stages"), 0o700)
		assertPerm(t, filepath.Join(writer.RunDir(), "run.json"), 0o600)
	}

	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "run.json"))
	if err != nil {
		t.Fatalf("read run.json: %v", err)
	}
	var decoded RunRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode run.json: %v", err)
	}
	if decoded.Topic != "Raft" || decoded.Status != "succeeded" {
		t.Fatalf("decoded run = %+v", decoded)
	}
}

func TestNewWriterRequiresArgs(t *testing.T) {
	if _, err := NewWriter("", "run"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestWriteStageRequiresName(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := writer.WriteStage(StageRecord{}); err == nil {
		t.Fatal("expected error for unnamed stage")
	}
}

func TestWriteNoteWithHTML(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := writer.WriteNote("# Note", "<h1>Note</h1>"); err != nil {
		t.Fatalf("write note: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(writer.RunDir(), "note.html"))
	if err != nil {
		t.Fatalf("read note.html: %v", err)
	}
	if string(data) != "<h1>Note</h1>" {
		t.Fatalf("note.html = %q", data)
	}
}

func TestHash(t *testing.T) {
	sum := sha256.Sum256([]byte("abc"))
	if got, want := Hash("abc"), hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("Hash = %s, want %s", got, want)
	}
}

func TestRecorderObserve(t *testing.T) {
	writer, err := NewWriter(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defs := []pipeline.StageDefinition{
		{ID: pipeline.StageSynthesizer, Prompt: "synthesize"},
		{ID: pipeline.StageHTMLTranslator, Prompt: "translate"},
	}
	rec := NewRecorder(writer, "mock-1", defs)

	events := []pipeline.Event{
		{Type: pipeline.EventStageStart, Stage: pipeline.StageSynthesizer},
		{Type: pipeline.EventChunk, Stage: pipeline.StageSynthesizer, Content: "dra"},
		{Type: pipeline.EventStageEnd, Stage: pipeline.StageSynthesizer, Content: "draft", Duration: 1500 * time.Millisecond},
		{Type: pipeline.EventSkipped, Stage: pipeline.StageHTMLTranslator},
	}
	for _, ev := range events {
		if err := rec.Observe(ev); err != nil {
			t.Fatalf("observe %s: %v", ev.Type, err)
		}
	}

	got := readStage(t, writer, "synthesizer")
	want := StageRecord{
		Name:           "synthesizer",
		Model:          "mock-1",
		PromptHash:     Hash("synthesize"),
		OutputHash:     Hash("draft"),
		Chars:          5,
		DurationMillis: 1500,
	}
	if got != want {
		t.Fatalf("synthesizer record = %+v, want %+v", got, want)
	}

	skipped := readStage(t, writer, "htmlTranslator")
	if !skipped.Skipped || skipped.OutputHash != "" {
		t.Fatalf("htmlTranslator record = %+v", skipped)
	}
}

func readStage(t *testing.T, w *Writer, name string) StageRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.RunDir(), "stages", name+".json"))
	if err != nil {
		t.Fatalf("read stage %s: %v", name, err)
	}
	var rec StageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode stage %s: %v", name, err)
	}
	return rec
}

func assertPerm(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if got := info.Mode().Perm(); got != want {
		t.Fatalf("%s perm = %o, want %o", path, got, want)
	}
}
