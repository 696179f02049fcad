package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved notes",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())
	return cmd
}

func withHistory(fn func(store *history.Store) error) error {
	s, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := openHistory(s)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func historyListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				summaries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Println("No saved notes.")
					return nil
				}
				t := newTable(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Title", "Topic", "Provider", "Tier", "HTML", "Chars", "Created"})
				for _, e := range summaries {
					t.AppendRow(table.Row{e.ID, e.Title, e.Topic, e.Provider, e.ModelTier, e.HasHTML, e.Chars, e.CreatedAt.Local().Format("2006-01-02 15:04")})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of notes to list")

	return cmd
}

func historyShowCmd() *cobra.Command {
	var htmlFlag bool
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a saved note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no saved note with id %s", args[0])
				}
				if err != nil {
					return err
				}
				switch {
				case jsonFlag:
					data, err := json.MarshalIndent(entry, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(data))
				case htmlFlag:
					if entry.HTML == "" {
						return fmt.Errorf("note %s has no HTML version", entry.ID)
					}
					fmt.Println(entry.HTML)
				default:
					fmt.Println(entry.Markdown)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&htmlFlag, "html", false, "print the HTML version")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full entry, including stage outputs, as JSON")

	return cmd
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					if errors.Is(err, history.ErrNotFound) {
						return fmt.Errorf("no saved note with id %s", args[0])
					}
					return err
				}
				fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
