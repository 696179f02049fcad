package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zen-systems/noteforge/pkg/observe"
	"github.com/zen-systems/noteforge/pkg/provider"
	"github.com/zen-systems/noteforge/pkg/retry"
)

const (
	maxTitleInputRunes = 6000
	maxTitleRunes      = 120
)

// TitleGenerator produces a short title for a finished note with a single
// provider call through the retry executor.
type TitleGenerator struct {
	provider provider.Provider
	exec     *retry.Executor
	template string
	logger   *slog.Logger
}

// NewTitleGenerator creates a title generator. An empty template uses the
// embedded default.
func NewTitleGenerator(p provider.Provider, obs *observe.Context, exec *retry.Executor, template string) *TitleGenerator {
	if obs == nil {
		obs = observe.Discard()
	}
	if exec == nil {
		exec = retry.New(obs.Logger())
	}
	if strings.TrimSpace(template) == "" {
		template = titlePrompt()
	}
	return &TitleGenerator{provider: p, exec: exec, template: template, logger: obs.Logger()}
}

// Generate returns a single-line title for content.
func (g *TitleGenerator) Generate(ctx context.Context, content string, cfg Config) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.New("title generation failed: content is empty")
	}

	prompt := strings.TrimSpace(g.template) + "\n\n" + fenceBlock(truncateRunes(content, maxTitleInputRunes))
	req := provider.Request{
		Prompt:          prompt,
		Temperature:     OutputMarkdown.Temperature(),
		Model:           cfg.Model,
		DisableThinking: cfg.disableThinking(),
	}
	raw, err := g.exec.Execute(ctx, "title", func(ctx context.Context) (string, error) {
		return g.provider.GenerateText(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := cleanTitle(raw)
	if title == "" {
		return "", errors.New("title generation failed: provider returned no title")
	}
	g.logger.Debug("title generated", slog.String("title", title))
	return title, nil
}

func fenceBlock(content string) string {
	fence := fenceFor(content)
	return fence + "\n" + content + "\n" + fence
}

// cleanTitle keeps the first non-empty line without markdown decoration.
func cleanTitle(raw string) string {
	for _, line := range strings.Split(StripFences(raw), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#*> ")
		line = strings.TrimPrefix(line, "Title:")
		line = strings.TrimRight(strings.TrimSpace(line), ".")
		line = strings.Trim(line, "\"'`*")
		line = strings.TrimRight(strings.TrimSpace(line), ".")
		if line != "" {
			return truncateRunes(line, maxTitleRunes)
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
