package diff

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

func TestRoundChange(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0, 0},
		{0.001, 0.01},
		{0.004999, 0.01},
		{0.005, 0.01},
		{0.014, 0.01},
		{0.016, 0.02},
		{12.3456, 12.35},
		{100, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundChange(tt.raw), 1e-12, "raw %v", tt.raw)
	}
}

func TestBinaryCompareIdentical(t *testing.T) {
	a := filled(8, 8, color.NRGBA{10, 20, 30, 255})
	res, err := BinaryCompare(a, filled(8, 8, color.NRGBA{10, 20, 30, 255}), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Highlighted)
	assert.Equal(t, 64, res.Total)
	assert.Equal(t, 0.0, res.Change)
	assert.Equal(t, 0.0, res.Rounded())
	assert.Equal(t, black, res.Image.NRGBAAt(3, 3))
}

func TestBinaryCompareMask(t *testing.T) {
	a := filled(4, 4, white)
	b := filled(4, 4, white)
	b.Set(1, 2, color.NRGBA{254, 255, 255, 255})
	b.Set(3, 3, black)

	res, err := BinaryCompare(a, b, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Highlighted)
	assert.InDelta(t, 12.5, res.Change, 1e-9)
	assert.Equal(t, white, res.Image.NRGBAAt(1, 2))
	assert.Equal(t, white, res.Image.NRGBAAt(3, 3))
	assert.Equal(t, black, res.Image.NRGBAAt(0, 0))
}

func TestBinaryCompareTinyChangeIsNeverZero(t *testing.T) {
	// One pixel in 100,000 is 0.001%.
	a := filled(400, 250, white)
	b := filled(400, 250, white)
	b.Set(17, 42, black)

	res, err := BinaryCompare(a, b, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Highlighted)
	assert.InDelta(t, 0.001, res.Change, 1e-12)
	assert.Equal(t, 0.01, res.Rounded())
}

func TestBinaryCompareFuzzAndMetric(t *testing.T) {
	a := filled(1, 1, color.NRGBA{100, 100, 100, 255})
	b := filled(1, 1, color.NRGBA{140, 100, 100, 255})

	// MAE = 40/255/4 ~ 0.039; Euclidean = 40/255/2 ~ 0.078.
	opts := DefaultOptions()
	opts.Fuzz = 0.05
	res, err := BinaryCompare(a, b, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Highlighted)

	opts.Metric = Euclidean
	res, err = BinaryCompare(a, b, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Highlighted)
}

func TestBinaryCompareCustomColors(t *testing.T) {
	opts := Options{Highlight: color.NRGBA{255, 0, 0, 255}, Lowlight: color.NRGBA{0, 0, 255, 128}}
	res, err := BinaryCompare(filled(2, 1, white), filled(2, 1, black), opts)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, res.Image.NRGBAAt(0, 0))
	assert.Equal(t, 100.0, res.Change)
}

func TestBinaryCompareDimensionMismatch(t *testing.T) {
	_, err := BinaryCompare(filled(2, 2, white), filled(2, 3, white), DefaultOptions())
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBinaryCompareOffsetOrigin(t *testing.T) {
	a := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	b := filled(2, 2, color.NRGBA{})
	res, err := BinaryCompare(a, b, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Highlighted)
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.Fuzz = 1.5
	_, err := BinaryCompare(filled(1, 1, white), filled(1, 1, white), opts)
	assert.Error(t, err)

	m, err := ParseMetric("RMSE")
	require.NoError(t, err)
	assert.Equal(t, Euclidean, m)
	_, err = ParseMetric("psnr")
	assert.Error(t, err)
}

func TestEngineImplementsComparator(t *testing.T) {
	var c Comparator = Engine{}
	res, err := c.Compare(filled(1, 1, white), filled(1, 1, black), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Highlighted)
}
