package diff

import (
	"fmt"
	"image/color"
	"strings"

	"artdiff/pkg/colorutil"
)

// Metric measures the distance between two pixels as a fraction of the full
// channel range.
type Metric int

const (
	// MeanAbsoluteError averages the absolute channel differences.
	MeanAbsoluteError Metric = iota
	// Euclidean is the root mean square of the channel differences.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case MeanAbsoluteError:
		return "mae"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric accepts "mae", "mean_absolute_error", "euclidean" or "rmse".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mae", "mean_absolute_error":
		return MeanAbsoluteError, nil
	case "euclidean", "rmse":
		return Euclidean, nil
	}
	return MeanAbsoluteError, fmt.Errorf("unknown metric %q", s)
}

// Options controls a comparison.
type Options struct {
	Highlight color.Color
	Lowlight  color.Color
	Metric    Metric
	// Fuzz is the distance, in [0,1], a pixel must exceed to count as changed.
	Fuzz float64
}

// DefaultOptions paints changed pixels opaque white over opaque black and
// counts any difference at all.
func DefaultOptions() Options {
	return Options{
		Highlight: colorutil.Values{Red: 255, Green: 255, Blue: 255}.RGBA(),
		Lowlight:  colorutil.Values{}.RGBA(),
		Metric:    MeanAbsoluteError,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Highlight == nil {
		o.Highlight = d.Highlight
	}
	if o.Lowlight == nil {
		o.Lowlight = d.Lowlight
	}
	return o
}

// Validate checks the option values.
func (o Options) Validate() error {
	if o.Fuzz < 0 || o.Fuzz > 1 {
		return fmt.Errorf("fuzz %v outside [0,1]", o.Fuzz)
	}
	if o.Metric != MeanAbsoluteError && o.Metric != Euclidean {
		return fmt.Errorf("unknown metric %d", o.Metric)
	}
	return nil
}
