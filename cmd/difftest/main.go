// Command difftest runs both comparators on a pair of images and prints
// their results side by side with timings.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"artdiff/internal/diff"
	"artdiff/internal/diff/cvdiff"
	artimage "artdiff/internal/image"
	"artdiff/internal/raster"
	"artdiff/pkg/geometry"
)

func main() {
	pathA := flag.String("a", "", "Path to first image (TIFF, PNG, or JPEG)")
	pathB := flag.String("b", "", "Path to second image")
	metric := flag.String("metric", "mae", "Pixel metric: mae or euclidean")
	fuzz := flag.Float64("fuzz", 0, "Tolerance as a fraction of the metric range")
	pad := flag.Bool("pad", false, "Pad both images to a common canvas first")
	out := flag.String("o", "", "Write the Go engine's mask to this PNG")
	flag.Parse()

	if *pathA == "" || *pathB == "" {
		fmt.Println("Usage: difftest -a <image> -b <image> [-metric mae|euclidean] [-fuzz 0.05] [-pad] [-o mask.png]")
		os.Exit(1)
	}

	a, err := raster.DecodeFile(*pathA)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *pathA, err)
		os.Exit(1)
	}
	b, err := raster.DecodeFile(*pathB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *pathB, err)
		os.Exit(1)
	}
	fmt.Printf("A: %dx%d\n", a.Bounds().Dx(), a.Bounds().Dy())
	fmt.Printf("B: %dx%d\n", b.Bounds().Dx(), b.Bounds().Dy())

	if *pad {
		target := geometry.MaxSize(
			geometry.Size{Width: a.Bounds().Dx(), Height: a.Bounds().Dy()},
			geometry.Size{Width: b.Bounds().Dx(), Height: b.Bounds().Dy()},
		)
		opts := artimage.DefaultCanvasOptions()
		opts.Width, opts.Height = target.Width, target.Height
		a = artimage.ExpandCanvas(a, opts)
		b = artimage.ExpandCanvas(b, opts)
		fmt.Printf("Padded to %dx%d\n", target.Width, target.Height)
	}

	m, err := diff.ParseMetric(*metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	opts := diff.DefaultOptions()
	opts.Metric = m
	opts.Fuzz = *fuzz

	engines := []struct {
		name string
		cmp  diff.Comparator
	}{
		{"go", diff.Engine{}},
		{"opencv", cvdiff.Comparator{}},
	}

	fmt.Printf("\n%-8s %12s %12s %10s %12s\n", "Engine", "Changed", "Total", "Change%", "Elapsed")
	var results []*diff.Result
	for _, e := range engines {
		start := time.Now()
		res, err := e.cmp.Compare(a, b, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", e.name, err)
			os.Exit(1)
		}
		results = append(results, res)
		fmt.Printf("%-8s %12d %12d %10.2f %12s\n", e.name, res.Highlighted, res.Total, res.Rounded(), time.Since(start).Round(time.Microsecond))
	}

	if results[0].Highlighted != results[1].Highlighted {
		fmt.Printf("\nWARNING: engines disagree by %d pixels\n", results[0].Highlighted-results[1].Highlighted)
	}

	if *out != "" {
		if err := raster.EncodeFile(*out, results[0].Image); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write mask: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nMask written to %s\n", *out)
	}
}
