package pipeline

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

var promptFiles = map[StageID]string{
	StageSynthesizer:      "prompts/synthesizer.md",
	StageCondenser:        "prompts/condenser.md",
	StageEnhancer:         "prompts/enhancer.md",
	StageMermaidValidator: "prompts/mermaid_validator.md",
	StageFinalizer:        "prompts/finalizer.md",
	StageHTMLTranslator:   "prompts/html_translator.md",
}

const titlePromptFile = "prompts/title.md"

// defaultPrompt returns the embedded template for id. The files are compiled
// in, so a read failure is a build defect.
func defaultPrompt(id StageID) string {
	return mustReadPrompt(promptFiles[id])
}

func titlePrompt() string {
	return mustReadPrompt(titlePromptFile)
}

func mustReadPrompt(name string) string {
	data, err := promptFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt %s: %v", name, err))
	}
	return strings.TrimSpace(string(data))
}
