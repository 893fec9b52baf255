package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoResolution is returned when a file carries no resolution metadata.
var ErrNoResolution = errors.New("no embedded resolution")

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3

	metersPerInch = 0.0254
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// EmbeddedResolution reads the pixels-per-inch a TIFF or PNG file declares.
// Other formats report ErrNoResolution.
func EmbeddedResolution(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return tiffResolution(f)
	case ".png":
		return pngResolution(f)
	}
	return 0, ErrNoResolution
}

func tiffResolution(r io.ReaderAt) (int, error) {
	var head [8]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return 0, fmt.Errorf("tiff header: %w", err)
	}
	var order binary.ByteOrder
	switch string(head[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("tiff header: bad byte order %q", head[:2])
	}

	ifd := int64(order.Uint32(head[4:]))
	var count [2]byte
	if _, err := r.ReadAt(count[:], ifd); err != nil {
		return 0, fmt.Errorf("tiff ifd: %w", err)
	}

	var x, y float64
	inches := true
	entry := make([]byte, 12)
	for i := 0; i < int(order.Uint16(count[:])); i++ {
		if _, err := r.ReadAt(entry, ifd+2+int64(i)*12); err != nil {
			return 0, fmt.Errorf("tiff ifd entry %d: %w", i, err)
		}
		tag, typ := order.Uint16(entry[0:]), order.Uint16(entry[2:])
		switch {
		case tag == tagXResolution && typ == typeRational:
			x = rational(r, int64(order.Uint32(entry[8:])), order)
		case tag == tagYResolution && typ == typeRational:
			y = rational(r, int64(order.Uint32(entry[8:])), order)
		case tag == tagResolutionUnit && typ == typeShort:
			inches = order.Uint16(entry[8:]) != unitCentimeter
		}
	}

	if x == 0 {
		x = y
	}
	if x == 0 {
		return 0, ErrNoResolution
	}
	if !inches {
		x *= 2.54
	}
	return int(math.Round(x)), nil
}

func rational(r io.ReaderAt, off int64, order binary.ByteOrder) float64 {
	var buf [8]byte
	if _, err := r.ReadAt(buf[:], off); err != nil {
		return 0
	}
	num, den := order.Uint32(buf[0:]), order.Uint32(buf[4:])
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// pngResolution walks the chunks before IDAT looking for pHYs. Only the
// meter unit carries a physical size.
func pngResolution(r io.ReaderAt) (int, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := r.ReadAt(sig, 0); err != nil || !bytes.Equal(sig, pngSignature) {
		return 0, fmt.Errorf("png signature: %w", errors.Join(err, ErrNoResolution))
	}

	var head [8]byte
	for off := int64(len(pngSignature)); ; {
		if _, err := r.ReadAt(head[:], off); err != nil {
			return 0, ErrNoResolution
		}
		length := int64(binary.BigEndian.Uint32(head[:4]))
		switch string(head[4:]) {
		case "pHYs":
			var body [9]byte
			if _, err := r.ReadAt(body[:], off+8); err != nil {
				return 0, fmt.Errorf("png pHYs: %w", err)
			}
			if body[8] != 1 {
				return 0, ErrNoResolution
			}
			ppm := float64(binary.BigEndian.Uint32(body[:4]))
			if ppm == 0 {
				return 0, ErrNoResolution
			}
			return int(math.Round(ppm * metersPerInch)), nil
		case "IDAT", "IEND":
			return 0, ErrNoResolution
		}
		off += 8 + length + 4
	}
}
