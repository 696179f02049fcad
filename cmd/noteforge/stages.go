package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/pipeline"
)

func stagesCmd() *cobra.Command {
	var manifestFlag string
	var showPrompt string

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Show the pipeline stages and their prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestFlag
			if path == "" {
				if s, err := loadSettings(); err == nil {
					path = s.PromptManifest
				}
			}

			var m *pipeline.Manifest
			if path != "" {
				loaded, err := pipeline.LoadManifest(path)
				if err != nil {
					return err
				}
				if err := loaded.Validate(); err != nil {
					return err
				}
				m = loaded
			}
			defs := m.Definitions()

			if showPrompt != "" {
				for _, def := range defs {
					if string(def.ID) == showPrompt {
						fmt.Fprintln(os.Stdout, def.Prompt)
						return nil
					}
				}
				if showPrompt == "title" {
					fmt.Fprintln(os.Stdout, m.TitleTemplate())
					return nil
				}
				return fmt.Errorf("invalid value for stage: unknown stage %q", showPrompt)
			}

			t := newTable(os.Stdout)
			t.AppendHeader(table.Row{"#", "Stage", "Output", "Temperature", "Role"})
			for i, def := range defs {
				t.AppendRow(table.Row{i + 1, def.ID, def.OutputKind, def.OutputKind.Temperature(), firstLine(def.Prompt)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestFlag, "manifest", "", "prompt manifest to apply (defaults to the configured one)")
	cmd.Flags().StringVar(&showPrompt, "prompt", "", "print the full prompt of one stage (or \"title\")")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [prompts.yaml]",
		Short: "Validate a prompt manifest",
		Long:  "Validates prompt manifest YAML without executing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.LoadManifest(args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			fmt.Println("Prompt manifest is valid.")
			return nil
		},
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
