// Package cvdiff implements diff.Comparator on top of OpenCV.
package cvdiff

import (
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"

	"artdiff/internal/diff"
	"artdiff/internal/raster"
)

// Comparator scores pixels with OpenCV matrix operations. It produces the
// same masks as diff.Engine.
type Comparator struct{}

var _ diff.Comparator = Comparator{}

// Compare implements diff.Comparator.
func (Comparator) Compare(a, b image.Image, opts diff.Options) (*diff.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", diff.ErrDimensionMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}
	w, h := ab.Dx(), ab.Dy()
	if w == 0 || h == 0 {
		return diff.HighlightMask(w, h, func(int, int) bool { return false }, opts), nil
	}

	ma, err := imageToMat(a)
	if err != nil {
		return nil, err
	}
	defer ma.Close()
	mb, err := imageToMat(b)
	if err != nil {
		return nil, err
	}
	defer mb.Close()

	mask, err := changedMask(ma, mb, opts)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	data, err := mask.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read mask: %w", err)
	}
	if len(data) < w*h {
		return nil, fmt.Errorf("mask holds %d values, want %d", len(data), w*h)
	}
	res := diff.HighlightMask(w, h, func(x, y int) bool {
		return data[y*w+x] > 0
	}, opts)
	if n := gocv.CountNonZero(mask); n != res.Highlighted {
		return nil, fmt.Errorf("mask count mismatch: %d vs %d", n, res.Highlighted)
	}
	return res, nil
}

// changedMask returns a CV_32F mask holding 255 where the per-pixel distance
// exceeds the fuzz threshold.
func changedMask(a, b gocv.Mat, opts diff.Options) (gocv.Mat, error) {
	absDiff := gocv.NewMat()
	defer absDiff.Close()
	gocv.AbsDiff(a, b, &absDiff)

	f := gocv.NewMat()
	defer f.Close()
	absDiff.ConvertTo(&f, gocv.MatTypeCV32FC4)

	channels := gocv.Split(f)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 4 {
		return gocv.Mat{}, fmt.Errorf("expected 4 channels, got %d", len(channels))
	}

	sum := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), f.Rows(), f.Cols(), gocv.MatTypeCV32F)
	sq := gocv.NewMat()
	defer sq.Close()

	// Channel values are 0..255, so the thresholds are scaled from the
	// normalized fuzz accordingly.
	var thresh float32
	switch opts.Metric {
	case diff.Euclidean:
		for _, c := range channels {
			gocv.Multiply(c, c, &sq)
			gocv.Add(sum, sq, &sum)
		}
		thresh = float32(opts.Fuzz * opts.Fuzz * 255 * 255 * 4)
	default:
		for _, c := range channels {
			gocv.Add(sum, c, &sum)
		}
		thresh = float32(opts.Fuzz * 255 * 4)
	}

	mask := gocv.NewMat()
	gocv.Threshold(sum, &mask, thresh, 255, gocv.ThresholdBinary)
	sum.Close()
	return mask, nil
}

// imageToMat copies an image into a 4-channel 8-bit matrix in RGBA order.
// The pixels cross into OpenCV in one copy; the matrix owns its memory.
func imageToMat(img image.Image) (gocv.Mat, error) {
	n := raster.ToNRGBA(img)
	w, h := n.Bounds().Dx(), n.Bounds().Dy()
	pix := n.Pix[:w*4*h]
	if n.Stride != w*4 {
		pix = make([]byte, 0, w*4*h)
		for y := 0; y < h; y++ {
			pix = append(pix, n.Pix[y*n.Stride:y*n.Stride+w*4]...)
		}
	}

	view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap %dx%d image: %w", w, h, err)
	}
	defer view.Close()
	mat := view.Clone()
	runtime.KeepAlive(pix)
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("empty matrix for %dx%d image", w, h)
	}
	return mat, nil
}
