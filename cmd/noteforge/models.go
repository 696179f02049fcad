package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/provider"
	"golang.org/x/sync/errgroup"
)

type providerModels struct {
	id     config.ProviderID
	models []string
	status string
}

func modelsCmd() *cobra.Command {
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models per provider",
		Long: `Shows the models each provider can serve. Ollama and LM Studio are
	queried over the network; other providers report their configured models.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ids := []config.ProviderID{s.Provider}
			if allFlag {
				ids = config.KnownProviders()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			results := collectModels(ctx, s, ids)

			t := newTable(os.Stdout)
			t.AppendHeader(table.Row{"Provider", "Models", "Fast", "High quality", "Status"})
			for _, r := range results {
				active := string(r.id)
				if r.id == s.Provider {
					active += " *"
				}
				t.AppendRow(table.Row{
					active,
					strings.Join(r.models, ", "),
					s.ModelForProvider(r.id, config.TierFast),
					s.ModelForProvider(r.id, config.TierHighQuality),
					r.status,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&allFlag, "all", false, "list every known provider, not just the active one")

	return cmd
}

// collectModels queries providers concurrently. A failing provider is reported
// in its row and never aborts the others.
func collectModels(ctx context.Context, s *config.Settings, ids []config.ProviderID) []providerModels {
	results := make([]providerModels, len(ids))
	var g errgroup.Group
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			r := providerModels{id: id, status: "ready"}
			if !s.HasCredentials(id) {
				r.status = "not configured"
			}
			models, err := provider.ListModels(ctx, s, id)
			switch {
			case err != nil:
				r.status = "unavailable: " + err.Error()
			case len(models) == 0 && r.status == "ready":
				r.status = "no models"
			}
			r.models = models
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}
