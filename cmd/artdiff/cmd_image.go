package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	artimage "artdiff/internal/image"
	"artdiff/internal/raster"
	"artdiff/pkg/geometry"
)

var (
	diffOutput string
	diffMetric string
	diffFuzz   float64
	diffEngine string

	normalizeDir     string
	normalizeGravity string
)

var unionCmd = &cobra.Command{
	Use:   "union BOUNDS BOUNDS...",
	Short: "Print the smallest bounds enclosing all the given bounds",
	Long: `Bounds are written "left,top,right,bottom" in page space, where top is
greater than bottom.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all := make([]geometry.Bounds, len(args))
		for i, a := range args {
			b, err := geometry.ParseBounds(a)
			if err != nil {
				return err
			}
			all[i] = b
		}
		u := geometry.Union(all[0], all[1:]...)
		if jsonOutput {
			return outputJSON(u)
		}
		fmt.Println(u)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Compare two images of equal size and write the difference mask",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("metric") {
			cfg.Diff.Metric = diffMetric
		}
		if cmd.Flags().Changed("fuzz") {
			cfg.Diff.Fuzz = diffFuzz
		}
		if cmd.Flags().Changed("engine") {
			cfg.Diff.Engine = diffEngine
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		opts, err := cfg.DiffOptions()
		if err != nil {
			return err
		}

		a, err := raster.DecodeFile(args[0])
		if err != nil {
			return err
		}
		b, err := raster.DecodeFile(args[1])
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := cfg.Comparator().Compare(a, b, opts)
		if err != nil {
			return err
		}
		newLogger().Debug("compared", "engine", cfg.Diff.Engine, "elapsed", time.Since(start))

		if diffOutput != "" {
			if err := raster.EncodeFile(diffOutput, res.Image); err != nil {
				return err
			}
		}
		if jsonOutput {
			return outputJSON(map[string]any{
				"highlighted": res.Highlighted,
				"total":       res.Total,
				"change":      res.Rounded(),
				"output":      diffOutput,
			})
		}
		fmt.Printf("%d of %d pixels differ (%.2f%%)\n", res.Highlighted, res.Total, res.Rounded())
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize IMAGE IMAGE...",
	Short: "Pad images to a common canvas size",
	Long: `Each image is composited, unscaled, onto a canvas as wide as the widest
input and as tall as the tallest. Results are written as PNG to the output
directory under the input's base name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if normalizeGravity != "" {
			cfg.Canvas.Gravity = normalizeGravity
		}
		opts, err := cfg.CanvasOptions()
		if err != nil {
			return err
		}
		return normalizeFiles(args, normalizeDir, opts)
	},
}

func normalizeFiles(paths []string, dir string, opts artimage.CanvasOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	imgs := make([]*image.NRGBA, len(paths))
	sizes := make([]geometry.Size, len(paths))
	for i, p := range paths {
		img, err := raster.DecodeFile(p)
		if err != nil {
			return err
		}
		imgs[i] = img
		sizes[i] = geometry.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	}
	target := geometry.MaxSize(sizes...)
	opts.Width, opts.Height = target.Width, target.Height

	for i, p := range paths {
		img := imgs[i]
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		out := filepath.Join(dir, base+".png")
		if err := raster.EncodeFile(out, artimage.ExpandCanvas(img, opts)); err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%dx%d)\n", p, out, target.Width, target.Height)
	}
	return nil
}

func init() {
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "", "write the difference mask to this PNG")
	diffCmd.Flags().StringVar(&diffMetric, "metric", "", "pixel metric: mae or euclidean")
	diffCmd.Flags().Float64Var(&diffFuzz, "fuzz", 0, "tolerance as a fraction of the metric's range")
	diffCmd.Flags().StringVar(&diffEngine, "engine", "", "comparator: go or opencv")

	normalizeCmd.Flags().StringVarP(&normalizeDir, "output-dir", "o", "normalized", "directory for padded images")
	normalizeCmd.Flags().StringVar(&normalizeGravity, "gravity", "", "anchor of the source on the canvas")
}
