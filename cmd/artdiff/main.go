// Command artdiff resolves artwork revisions, pairs them into visual
// comparisons and generates pixel differences.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"artdiff/internal/app"
	"artdiff/internal/version"
)

var (
	configPath   string
	manifestPath string
	verbose      bool
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:           "artdiff",
	Short:         "Compare artwork revisions across processing passes",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "pass manifest (defaults to the configured manifest)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(unionCmd, diffCmd, normalizeCmd, colorCmd)
	rootCmd.AddCommand(syncCmd, pairsCmd, compareCmd, generateCmd, watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if manifestPath != "" {
		cfg.Manifest = manifestPath
	}
	return cfg, nil
}

// openService loads the configuration and opens the store. When a manifest
// is configured its pass topology is loaded too.
func openService() (*app.Service, *slog.Logger, error) {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return nil, logger, err
	}
	svc, err := app.NewService(cfg, logger)
	if err != nil {
		return nil, logger, err
	}
	if cfg.Manifest != "" {
		if err := svc.State.LoadManifest(cfg.Manifest); err != nil {
			svc.Close()
			return nil, logger, err
		}
	}
	return svc, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
