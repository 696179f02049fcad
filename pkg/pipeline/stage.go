package pipeline

import "fmt"

// StageID names one step of the fixed pipeline sequence.
type StageID string

const (
	StageSynthesizer      StageID = "synthesizer"
	StageCondenser        StageID = "condenser"
	StageEnhancer         StageID = "enhancer"
	StageMermaidValidator StageID = "mermaidValidator"
	StageFinalizer        StageID = "finalizer"
	StageHTMLTranslator   StageID = "htmlTranslator"
)

// SkipMarker is recorded as the output of a stage that was bypassed.
const SkipMarker = "Skipped"

// StageOrder returns the execution order. It is not configurable: each stage
// embeds the complete output of the one before it.
func StageOrder() []StageID {
	return []StageID{
		StageSynthesizer,
		StageCondenser,
		StageEnhancer,
		StageMermaidValidator,
		StageFinalizer,
		StageHTMLTranslator,
	}
}

// Valid reports whether id is part of the stage sequence.
func (id StageID) Valid() bool {
	for _, known := range StageOrder() {
		if id == known {
			return true
		}
	}
	return false
}

// OutputKind selects fence stripping and sampling temperature for a stage.
type OutputKind string

const (
	OutputMarkdown OutputKind = "markdown"
	OutputHTML     OutputKind = "html"
)

// Temperature favors precision for HTML and creativity for markdown.
func (k OutputKind) Temperature() float64 {
	if k == OutputHTML {
		return 0.2
	}
	return 0.6
}

// StageDefinition is static configuration for one stage.
type StageDefinition struct {
	ID         StageID    `yaml:"id"`
	Prompt     string     `yaml:"prompt"`
	OutputKind OutputKind `yaml:"output_kind,omitempty"`
}

// outputKindFor returns the fixed output kind of a stage.
func outputKindFor(id StageID) OutputKind {
	if id == StageHTMLTranslator {
		return OutputHTML
	}
	return OutputMarkdown
}

// DefaultDefinitions returns every stage with its embedded prompt.
func DefaultDefinitions() []StageDefinition {
	defs := make([]StageDefinition, 0, len(StageOrder()))
	for _, id := range StageOrder() {
		defs = append(defs, StageDefinition{
			ID:         id,
			Prompt:     defaultPrompt(id),
			OutputKind: outputKindFor(id),
		})
	}
	return defs
}

func definitionFor(defs []StageDefinition, id StageID) (StageDefinition, error) {
	for _, def := range defs {
		if def.ID == id {
			return def, nil
		}
	}
	return StageDefinition{}, fmt.Errorf("stage %s is not defined", id)
}
