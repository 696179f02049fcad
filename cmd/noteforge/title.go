package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/pipeline"
)

func titleCmd() *cobra.Command {
	var tierFlag string

	cmd := &cobra.Command{
		Use:   "title [file]",
		Short: "Generate a title for a note",
		Long:  "Reads note content from a file (or stdin) and prints a single-line title.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			obs, err := newObserver(s)
			if err != nil {
				return err
			}
			tier, err := config.ParseTier(tierFlag)
			if err != nil {
				return err
			}
			if tierFlag == "" {
				tier = s.ModelTier
			}

			var data []byte
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return reportFailure(obs, fmt.Errorf("read failed: %w", err), apperr.ContextTitle)
			}

			title, err := pipeline.GenerateTitle(cmd.Context(), string(data), tier, s, obs)
			if err != nil {
				return reportFailure(obs, err, apperr.ContextTitle)
			}
			fmt.Fprintln(os.Stdout, title)
			return nil
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", "", "model tier: fast or high-quality")

	return cmd
}
