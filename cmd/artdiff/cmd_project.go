package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"artdiff/internal/app"
	"artdiff/internal/model"
	"artdiff/internal/version"
)

var (
	compareValidation bool
	generateAll       bool
	watchDebounce     time.Duration
)

func requireManifest(svc *app.Service) (string, error) {
	if svc.Config.Manifest == "" {
		return "", fmt.Errorf("%w: no manifest given, use --manifest or set manifest in the config", model.ErrValidation)
	}
	return svc.Config.Manifest, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import the manifest, create missing comparisons and generate differences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logger, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()
		path, err := requireManifest(svc)
		if err != nil {
			return err
		}

		svc.Queue.Start(cmd.Context())
		if err := svc.Sync(cmd.Context(), path); err != nil {
			return err
		}
		logger.Info("waiting for difference generation", "jobs", svc.Queue.Len())
		return nil
	},
}

var pairsCmd = &cobra.Command{
	Use:   "pairs PASS",
	Short: "List the pass pairs around PASS that still need a comparison",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()
		if _, err := requireManifest(svc); err != nil {
			return err
		}

		pass, err := svc.State.Pass(args[0])
		if err != nil {
			return err
		}
		pairs, err := svc.Pairer.MissingPairs(cmd.Context(), pass)
		if err != nil {
			return err
		}
		if jsonOutput {
			out := make([][2]string, len(pairs))
			for i, p := range pairs {
				out[i] = [2]string{p.A.ID, p.B.ID}
			}
			return outputJSON(out)
		}
		if len(pairs) == 0 {
			fmt.Println("no missing comparisons")
		}
		for _, p := range pairs {
			fmt.Printf("%s -> %s\n", p.A.ID, p.B.ID)
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare PASS_A [PASS_B]",
	Short: "Create the comparison between two passes, or a pass's validation comparison",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareValidation != (len(args) == 1) {
			return fmt.Errorf("%w: give one pass with --validation or two passes without it", model.ErrValidation)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		var c *model.VisualComparison
		if compareValidation {
			c, err = svc.Pairer.CreateValidation(ctx, args[0])
		} else {
			c, err = svc.Pairer.CreateForPasses(ctx, args[0], args[1])
		}
		if err != nil {
			return err
		}
		typ, err := svc.Pairer.Type(ctx, c)
		if err != nil {
			return err
		}
		return printComparison(c, typ)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [COMPARISON]",
	Short: "Generate the difference image of a comparison",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateAll != (len(args) == 0) {
			return fmt.Errorf("%w: give a comparison id or --all", model.ErrValidation)
		}
		svc, logger, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		if generateAll {
			svc.Queue.Start(ctx)
			n, err := svc.EnqueuePending(ctx)
			if err != nil {
				return err
			}
			logger.Info("generating differences", "jobs", n)
			return nil
		}

		c, err := svc.Pairer.Generate(ctx, args[0])
		if errors.Is(err, model.ErrAlreadyGenerated) {
			logger.Warn("difference already generated", "comparison", args[0])
			if c, err = svc.Pairer.Comparison(ctx, args[0]); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		typ, err := svc.Pairer.Type(ctx, c)
		if err != nil {
			return err
		}
		return printComparison(c, typ)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync the manifest now and again whenever it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logger, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()
		path, err := requireManifest(svc)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		svc.Queue.Start(ctx)
		svc.Events.On(app.EventGenerateFailed, func(data interface{}) {
			f := data.(app.GenerateFailure)
			logger.Warn("difference generation failed", "comparison", f.ComparisonID, "error", f.Err)
		})
		if err := svc.Sync(ctx, path); err != nil {
			logger.Error("initial sync failed", "error", err)
		}

		reloader, err := app.NewManifestReloader(path, watchDebounce, logger)
		if err != nil {
			return err
		}
		defer reloader.Stop()
		reloader.OnChange(func() {
			logger.Info("manifest changed, syncing", "path", path)
			if err := svc.Sync(ctx, path); err != nil {
				logger.Error("sync failed", "error", err)
			}
		})
		logger.Info("watching manifest", "path", reloader.Path())
		return reloader.Start(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareValidation, "validation", false, "create the pass's original vs final validation comparison")
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "generate every pending comparison")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a change is synced")
}
