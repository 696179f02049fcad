package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/history"
	"github.com/zen-systems/noteforge/pkg/ingest"
	"github.com/zen-systems/noteforge/pkg/observe"
	"github.com/zen-systems/noteforge/pkg/pipeline"
	"github.com/zen-systems/noteforge/pkg/record"
)

func runCmd() *cobra.Command {
	var topic string
	var textFlag string
	var inputs []string
	var tierFlag string
	var htmlFlag bool
	var outFlag string
	var htmlOutFlag string
	var noTitle bool
	var noHistory bool
	var noRecord bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the knowledge pipeline",
		Long: `Builds a note from text, files and URLs. Sources given with --input are
	loaded first, each under a "--- Source: <name> ---" header, followed by
	--text (or stdin when neither --text nor --input is set).

	Progress is written to stderr; the finished markdown goes to stdout
	unless --out is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := loadSettings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			obs, err := newObserver(s)
			if err != nil {
				return err
			}

			tier := s.ModelTier
			if tierFlag != "" {
				if tier, err = config.ParseTier(tierFlag); err != nil {
					return err
				}
			}
			generateHTML := s.GenerateHTML
			if cmd.Flags().Changed("html") {
				generateHTML = htmlFlag
			}

			userText := textFlag
			if userText == "" && len(inputs) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				userText = string(data)
			}

			loader := ingest.NewLoader()
			sources := make([]ingest.Source, 0, len(inputs))
			for _, ref := range inputs {
				src, err := loader.Load(ctx, ref)
				if err != nil {
					return reportFailure(obs, err, apperr.ContextSetup)
				}
				obs.Logger().Debug("source loaded", "name", src.Name, "kind", src.Kind, "chars", len(src.Text))
				sources = append(sources, src)
			}
			rawInput := ingest.Combine(sources, userText)

			setup, err := pipeline.NewSetup(ctx, s, obs)
			if err != nil {
				return reportFailure(obs, err, apperr.ContextSetup)
			}
			defs := setup.Manifest.Definitions()
			cfg := pipeline.ConfigFromSettings(s, tier, generateHTML)
			engine := pipeline.NewEngine(setup.Provider, obs, pipeline.WithDefinitions(defs))
			run, err := engine.Start(rawInput, topic, cfg)
			if err != nil {
				return reportFailure(obs, err, apperr.ContextSetup)
			}

			runRecord := record.RunRecord{
				ID:           run.ID,
				Timestamp:    time.Now().UTC(),
				Topic:        run.Topic(),
				Provider:     string(cfg.Provider),
				Model:        cfg.Model,
				ModelTier:    string(cfg.ModelTier),
				InputHash:    record.Hash(rawInput),
				GenerateHTML: cfg.GenerateHTML,
				ToolVersions: toolVersions(),
			}
			var writer *record.Writer
			var recorder *record.Recorder
			if !noRecord {
				dir, err := recordDir(s)
				if err != nil {
					return err
				}
				if writer, err = record.NewWriter(dir, run.ID); err != nil {
					return fmt.Errorf("create run record: %w", err)
				}
				recorder = record.NewRecorder(writer, cfg.Model, defs)
			}

			prog := newProgress(os.Stderr, verbose)
			result, runErr := run.Collect(ctx, func(ev pipeline.Event) {
				prog.Event(ev)
				if recorder == nil {
					return
				}
				if err := recorder.Observe(ev); err != nil {
					obs.Logger().Warn("write stage record failed", "stage", ev.Stage, "error", err)
				}
			})
			if runErr != nil {
				if writer != nil {
					st := run.Status()
					runRecord.Status = st.Kind.String()
					runRecord.FailedStage = string(st.Stage)
					runRecord.Error = runErr.Error()
					if err := writer.WriteRun(runRecord); err != nil {
						obs.Logger().Warn("write run record failed", "error", err)
					}
				}
				return reportFailure(obs, runErr, apperr.ContextSetup)
			}

			title := run.Topic()
			if !noTitle {
				title = generateTitle(cmd, setup, obs, result.Markdown, cfg, title)
			}

			runRecord.Status = run.Status().Kind.String()
			runRecord.Title = title
			if writer != nil {
				if err := writer.WriteNote(result.Markdown, result.HTML); err != nil {
					return fmt.Errorf("write note: %w", err)
				}
				if err := writer.WriteRun(runRecord); err != nil {
					return fmt.Errorf("write run record: %w", err)
				}
			}

			if !noHistory {
				if err := saveHistory(cmd, s, result, runRecord); err != nil {
					reportFailure(obs, err, apperr.ContextSetup)
				}
			}

			if outFlag != "" {
				if err := os.WriteFile(outFlag, []byte(result.Markdown), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Note written to %s\n", outFlag)
			} else {
				fmt.Fprintln(os.Stdout, result.Markdown)
			}
			if htmlOutFlag != "" && result.HTML != "" {
				if err := os.WriteFile(htmlOutFlag, []byte(result.HTML), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "HTML written to %s\n", htmlOutFlag)
			}
			if writer != nil {
				fmt.Fprintf(os.Stderr, "Run complete. Record: %s\n", writer.RunDir())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic of the note (required)")
	cmd.Flags().StringVar(&textFlag, "text", "", "raw text to include (defaults to stdin when no --input is given)")
	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "file path or http(s) URL to include (repeatable)")
	cmd.Flags().StringVar(&tierFlag, "tier", "", "model tier: fast or high-quality")
	cmd.Flags().BoolVar(&htmlFlag, "html", false, "also translate the note to HTML")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the markdown note to this file")
	cmd.Flags().StringVar(&htmlOutFlag, "html-out", "", "write the HTML document to this file")
	cmd.Flags().BoolVar(&noTitle, "no-title", false, "skip title generation and use the topic")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not save the note to history")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not write a run record")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "echo generated text while stages run")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

// generateTitle falls back to the topic when title generation fails. The
// failure is still reported.
func generateTitle(cmd *cobra.Command, setup *pipeline.Setup, obs *observe.Context, markdown string, cfg pipeline.Config, fallback string) string {
	gen := pipeline.NewTitleGenerator(setup.Provider, obs, nil, setup.Manifest.TitleTemplate())
	title, err := gen.Generate(cmd.Context(), markdown, cfg)
	if err != nil {
		reportFailure(obs, err, apperr.ContextTitle)
		return fallback
	}
	return title
}

func saveHistory(cmd *cobra.Command, s *config.Settings, result pipeline.Result, rr record.RunRecord) error {
	store, err := openHistory(s)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Save(cmd.Context(), history.Entry{
		RunID:     result.RunID,
		Title:     strings.TrimSpace(rr.Title),
		Topic:     result.Topic,
		Provider:  rr.Provider,
		ModelTier: rr.ModelTier,
		Model:     rr.Model,
		Markdown:  result.Markdown,
		HTML:      result.HTML,
		Stages:    result.Outputs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved to history: %s (%s)\n", entry.ID, entry.Title)
	return nil
}
