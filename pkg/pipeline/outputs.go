package pipeline

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"
)

// StageOutputs records one committed output per stage in execution order.
// Entries are write-once.
type StageOutputs struct {
	mu     sync.RWMutex
	order  []StageID
	values map[StageID]string
}

// StageOutput is one ordered entry of StageOutputs.
type StageOutput struct {
	Stage  StageID `json:"stage"`
	Output string  `json:"output"`
}

func newStageOutputs() *StageOutputs {
	return &StageOutputs{values: make(map[StageID]string)}
}

func (o *StageOutputs) commit(id StageID, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.values[id]; ok {
		return fmt.Errorf("stage %s output already committed", id)
	}
	o.values[id] = value
	o.order = append(o.order, id)
	return nil
}

// Get returns the committed output for id.
func (o *StageOutputs) Get(id StageID) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[id]
	return v, ok
}

// Len returns the number of committed stages.
func (o *StageOutputs) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// Entries returns a copy of every entry in commit order.
func (o *StageOutputs) Entries() []StageOutput {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]StageOutput, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, StageOutput{Stage: id, Output: o.values[id]})
	}
	return out
}

// All iterates entries in commit order over a snapshot.
func (o *StageOutputs) All() iter.Seq2[StageID, string] {
	entries := o.Entries()
	return func(yield func(StageID, string) bool) {
		for _, e := range entries {
			if !yield(e.Stage, e.Output) {
				return
			}
		}
	}
}

// MarshalJSON encodes the entries as an ordered list.
func (o *StageOutputs) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Entries())
}
