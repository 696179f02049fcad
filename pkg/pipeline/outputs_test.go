package pipeline

import (
	"encoding/json"
	"testing"
)

func TestStageOutputsWriteOnce(t *testing.T) {
	o := newStageOutputs()
	if err := o.commit(StageSynthesizer, "first"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := o.commit(StageSynthesizer, "second"); err == nil {
		t.Fatal("second commit should fail")
	}
	if got, _ := o.Get(StageSynthesizer); got != "first" {
		t.Fatalf("value = %q", got)
	}
}

func TestStageOutputsKeepCommitOrder(t *testing.T) {
	o := newStageOutputs()
	_ = o.commit(StageCondenser, "b")
	_ = o.commit(StageSynthesizer, "a")

	var keys []StageID
	for id := range o.All() {
		keys = append(keys, id)
	}
	if len(keys) != 2 || keys[0] != StageCondenser || keys[1] != StageSynthesizer {
		t.Fatalf("keys = %v", keys)
	}

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"stage":"condenser","output":"b"},{"stage":"synthesizer","output":"a"}]`
	if string(data) != want {
		t.Fatalf("json = %s", data)
	}
}
