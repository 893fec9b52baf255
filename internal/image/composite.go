// Package image equalizes raster canvases before comparison.
package image

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"artdiff/pkg/colorutil"
)

// Gravity selects the canvas corner or edge a raster is anchored to.
type Gravity int

const (
	NorthWest Gravity = iota
	North
	NorthEast
	West
	Center
	East
	SouthWest
	South
	SouthEast
)

var gravityNames = [...]string{
	NorthWest: "northwest",
	North:     "north",
	NorthEast: "northeast",
	West:      "west",
	Center:    "center",
	East:      "east",
	SouthWest: "southwest",
	South:     "south",
	SouthEast: "southeast",
}

func (g Gravity) String() string {
	if g < 0 || int(g) >= len(gravityNames) {
		return "unknown"
	}
	return gravityNames[g]
}

// ParseGravity parses a gravity name such as "northwest" or "center".
func ParseGravity(s string) (Gravity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NorthWest, nil
	}
	for g, name := range gravityNames {
		if name == s {
			return Gravity(g), nil
		}
	}
	return NorthWest, fmt.Errorf("unknown gravity %q", s)
}

// anchor returns where the top-left pixel of a src-sized raster lands on canvas.
func (g Gravity) anchor(src, canvas image.Point) image.Point {
	free := canvas.Sub(src)
	var p image.Point
	switch g {
	case North, Center, South:
		p.X = free.X / 2
	case NorthEast, East, SouthEast:
		p.X = free.X
	}
	switch g {
	case West, Center, East:
		p.Y = free.Y / 2
	case SouthWest, South, SouthEast:
		p.Y = free.Y
	}
	return p
}

// CanvasOptions controls ExpandCanvas.
type CanvasOptions struct {
	Width      int
	Height     int
	Background color.Color
	// Pattern, when set, is tiled over the canvas instead of Background.
	Pattern image.Image
	Gravity Gravity
	OffsetX int
	OffsetY int
}

// DefaultCanvasOptions anchors at the top-left corner over opaque white.
func DefaultCanvasOptions() CanvasOptions {
	return CanvasOptions{
		Background: colorutil.White,
		Gravity:    NorthWest,
	}
}

// ExpandCanvas composites src over a new Width x Height canvas. The source is
// neither scaled nor cropped beyond what falls outside the canvas.
func ExpandCanvas(src image.Image, opts CanvasOptions) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))

	if opts.Pattern != nil {
		tile(dst, opts.Pattern)
	} else {
		bg := opts.Background
		if bg == nil {
			bg = colorutil.White
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	sb := src.Bounds()
	at := opts.Gravity.anchor(sb.Size(), dst.Bounds().Size()).Add(image.Pt(opts.OffsetX, opts.OffsetY))
	draw.Copy(dst, at, src, sb, draw.Over, nil)
	return dst
}

func tile(dst *image.NRGBA, pattern image.Image) {
	pb := pattern.Bounds()
	if pb.Empty() {
		return
	}
	db := dst.Bounds()
	for y := db.Min.Y; y < db.Max.Y; y += pb.Dy() {
		for x := db.Min.X; x < db.Max.X; x += pb.Dx() {
			draw.Copy(dst, image.Pt(x, y), pattern, pb, draw.Src, nil)
		}
	}
}

// Checkerboard returns a two-cell pattern of size 2*cell, suitable for
// CanvasOptions.Pattern.
func Checkerboard(cell int, a, b color.Color) image.Image {
	if cell < 1 {
		cell = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, 2*cell, 2*cell))
	for y := 0; y < 2*cell; y++ {
		for x := 0; x < 2*cell; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.Set(x, y, a)
			} else {
				img.Set(x, y, b)
			}
		}
	}
	return img
}
