package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/apperr"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/logging"
	"github.com/zen-systems/noteforge/pkg/observe"
	"gopkg.in/yaml.v3"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change settings",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetProviderCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with API keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := yaml.Marshal(masked(s))
			if err != nil {
				return err
			}
			if path, err := settingsPath(); err == nil {
				fmt.Fprintf(os.Stderr, "# %s\n", path)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configSetProviderCmd() *cobra.Command {
	var tierFlag string
	var modelFlag string
	var baseURLFlag string

	cmd := &cobra.Command{
		Use:   "set-provider [provider]",
		Short: "Select the active provider and persist it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs := observe.New(logging.Discard())
			path, err := settingsPath()
			if err != nil {
				return err
			}
			s, err := config.LoadFile(path)
			if err != nil {
				return reportFailure(obs, err, apperr.ContextSetup)
			}

			id := config.ProviderID(strings.ToLower(args[0]))
			if !id.Valid() {
				return reportFailure(obs, fmt.Errorf("invalid value for provider: %q", args[0]), apperr.ContextSetup)
			}
			s.Provider = id
			if tierFlag != "" {
				tier, err := config.ParseTier(tierFlag)
				if err != nil {
					return err
				}
				s.ModelTier = tier
			}
			if modelFlag != "" || baseURLFlag != "" {
				ps := s.ProviderConfig(id)
				if modelFlag != "" {
					ps.SelectedModel = modelFlag
				}
				if baseURLFlag != "" {
					ps.BaseURL = baseURLFlag
				}
				s.Providers[id] = ps
			}

			if err := config.Save(path, s); err != nil {
				return reportFailure(obs, err, apperr.ContextSetup)
			}
			fmt.Fprintf(os.Stderr, "Provider set to %s (%s)\n", id, path)
			if !s.HasCredentials(id) {
				fmt.Fprintf(os.Stderr, "Warning: %s has no API key or base URL configured\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", "", "also set the default model tier")
	cmd.Flags().StringVar(&modelFlag, "model", "", "model to select for this provider")
	cmd.Flags().StringVar(&baseURLFlag, "base-url", "", "base URL for this provider")

	return cmd
}

// masked returns a copy of s with API keys shortened to their last four
// characters.
func masked(s *config.Settings) *config.Settings {
	out := *s
	out.Providers = make(map[config.ProviderID]config.ProviderSettings, len(s.Providers))
	for id, ps := range s.Providers {
		if ps.APIKey != "" {
			ps.APIKey = maskKey(ps.APIKey)
		}
		out.Providers[id] = ps
	}
	return &out
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
