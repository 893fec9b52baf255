package diff

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// ErrDimensionMismatch is returned when the two rasters differ in size.
// Callers are expected to normalize canvases first.
var ErrDimensionMismatch = errors.New("image dimensions differ")

// Result is the outcome of a comparison.
type Result struct {
	// Image is the two-color mask, the same size as the inputs.
	Image *image.NRGBA
	// Highlighted counts the pixels painted with the highlight color.
	Highlighted int
	// Total is the number of pixels compared.
	Total int
	// Change is Highlighted/Total*100, unrounded.
	Change float64
}

// Rounded returns the change percentage under the reporting rule.
func (r *Result) Rounded() float64 {
	return RoundChange(r.Change)
}

// Comparator produces a difference mask for two equally sized rasters.
type Comparator interface {
	Compare(a, b image.Image, opts Options) (*Result, error)
}

// Engine is the pure-Go Comparator.
type Engine struct{}

// Compare implements Comparator.
func (Engine) Compare(a, b image.Image, opts Options) (*Result, error) {
	return BinaryCompare(a, b, opts)
}

// BinaryCompare paints every pixel whose distance under opts.Metric exceeds
// opts.Fuzz with the highlight color, and every other pixel with the lowlight
// color.
func BinaryCompare(a, b image.Image, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	pa, pb := nrgba(a), nrgba(b)
	var ca, cb [4]float64
	changed := func(x, y int) bool {
		channels(pa, x, y, &ca)
		channels(pb, x, y, &cb)
		return distance(ca[:], cb[:], opts.Metric) > opts.Fuzz
	}
	return HighlightMask(ab.Dx(), ab.Dy(), changed, opts), nil
}

func newResult(mask *image.NRGBA, highlighted, total int) *Result {
	r := &Result{Image: mask, Highlighted: highlighted, Total: total}
	if total > 0 {
		r.Change = float64(highlighted) / float64(total) * 100
	}
	return r
}

// channels loads the pixel at x,y as four values in [0,1].
func channels(img *image.NRGBA, x, y int, dst *[4]float64) {
	i := img.PixOffset(x, y)
	for c := 0; c < 4; c++ {
		dst[c] = float64(img.Pix[i+c]) / 255
	}
}

func distance(a, b []float64, m Metric) float64 {
	n := float64(len(a))
	if m == Euclidean {
		return floats.Distance(a, b, 2) / math.Sqrt(n)
	}
	return floats.Distance(a, b, 1) / n
}

func nrgba(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// RoundChange rounds a change percentage to two decimal places. A value that
// rounds to zero but is strictly positive is reported as 0.01, so a real
// difference never disappears from reports.
func RoundChange(raw float64) float64 {
	rounded := scalar.Round(raw, 2)
	if rounded == 0 && raw > 0 {
		return 0.01
	}
	return rounded
}

// HighlightMask converts a single-channel mask (non-zero = changed) into a
// Result, painting it with the option colors. It lets accelerated
// comparators share the mask and scoring logic.
func HighlightMask(w, h int, changed func(x, y int) bool, opts Options) *Result {
	opts = opts.withDefaults()
	hi := color.NRGBAModel.Convert(opts.Highlight).(color.NRGBA)
	lo := color.NRGBAModel.Convert(opts.Lowlight).(color.NRGBA)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	highlighted := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if changed(x, y) {
				out.SetNRGBA(x, y, hi)
				highlighted++
			} else {
				out.SetNRGBA(x, y, lo)
			}
		}
	}
	return newResult(out, highlighted, w*h)
}
