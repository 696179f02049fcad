package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest overrides stage prompt templates. Stages it does not mention keep
// their embedded defaults; the stage order never changes.
type Manifest struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Stages      []StageDefinition `yaml:"stages"`
	TitlePrompt string            `yaml:"title_prompt,omitempty"`
}

// LoadManifest reads a prompt manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return &manifest, nil
}

// Validate checks the manifest for errors.
func (m *Manifest) Validate() error {
	seen := make(map[StageID]struct{})
	for _, stage := range m.Stages {
		if stage.ID == "" {
			return fmt.Errorf("stage id is required")
		}
		if !stage.ID.Valid() {
			return fmt.Errorf("invalid value for stage id: unknown stage %s", stage.ID)
		}
		if strings.TrimSpace(stage.Prompt) == "" {
			return fmt.Errorf("stage %s must have a prompt", stage.ID)
		}
		if stage.OutputKind != "" && stage.OutputKind != outputKindFor(stage.ID) {
			return fmt.Errorf("invalid value for stage %s output_kind: %s", stage.ID, stage.OutputKind)
		}
		if _, ok := seen[stage.ID]; ok {
			return fmt.Errorf("duplicate stage id: %s", stage.ID)
		}
		seen[stage.ID] = struct{}{}
	}

	return nil
}

// Definitions merges the manifest over the embedded defaults. A nil manifest
// yields the defaults.
func (m *Manifest) Definitions() []StageDefinition {
	defs := DefaultDefinitions()
	if m == nil {
		return defs
	}
	overrides := make(map[StageID]string, len(m.Stages))
	for _, stage := range m.Stages {
		overrides[stage.ID] = strings.TrimSpace(stage.Prompt)
	}
	for i := range defs {
		if prompt, ok := overrides[defs[i].ID]; ok {
			defs[i].Prompt = prompt
		}
	}
	return defs
}

// TitleTemplate returns the title prompt override or the embedded default.
func (m *Manifest) TitleTemplate() string {
	if m != nil && strings.TrimSpace(m.TitlePrompt) != "" {
		return strings.TrimSpace(m.TitlePrompt)
	}
	return titlePrompt()
}
