package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zen-systems/noteforge/pkg/config"
	"github.com/zen-systems/noteforge/pkg/history"
	"github.com/zen-systems/noteforge/pkg/logging"
	"github.com/zen-systems/noteforge/pkg/observe"
)

var version = "dev"

var (
	configFile   string
	providerFlag string
	logLevelFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "noteforge",
		Short: "Turn raw text into polished Obsidian notes with a multi-stage LLM pipeline",
		Long: `Noteforge runs raw text, files and web pages through a fixed sequence of
	LLM stages (synthesize, condense, enhance, validate diagrams, finalize and
	optionally translate to HTML) and prints the finished note.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to settings file (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "override the configured provider")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(titleCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(stagesCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func loadSettings() (*config.Settings, error) {
	var (
		s   *config.Settings
		err error
	)
	if configFile != "" {
		s, err = config.LoadFile(configFile)
	} else {
		s, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if providerFlag != "" {
		s.Provider = config.ProviderID(providerFlag)
	}
	if logLevelFlag != "" {
		s.Log.Level = logLevelFlag
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func settingsPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.DefaultPath()
}

func newObserver(s *config.Settings) (*observe.Context, error) {
	logger, err := logging.New(logging.Options{Level: s.Log.Level, Format: s.Log.Format})
	if err != nil {
		return nil, err
	}
	return observe.New(logger.With("version", version)), nil
}

func openHistory(s *config.Settings) (*history.Store, error) {
	path := s.HistoryPath
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(dir, "history.db")
	}
	return history.Open(path)
}

func recordDir(s *config.Settings) (string, error) {
	if s.OutputDir != "" {
		return s.OutputDir, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "runs"), nil
}

func toolVersions() map[string]string {
	return map[string]string{
		"noteforge": version,
		"go":        runtime.Version(),
	}
}
