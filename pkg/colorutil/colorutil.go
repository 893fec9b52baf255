// Package colorutil provides shared color utilities for diff masks and canvas fills.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colors used for difference masks and canvas backgrounds.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.RGBA{}
)

// Values is a channel description where Opacity counts up from fully opaque (0)
// to fully transparent (255), the convention of the rendering toolchain that
// produces previews.
type Values struct {
	Red     uint8 `json:"red" yaml:"red"`
	Green   uint8 `json:"green" yaml:"green"`
	Blue    uint8 `json:"blue" yaml:"blue"`
	Opacity uint8 `json:"opacity" yaml:"opacity"`
}

// RGBA converts to a non-premultiplied color.
func (v Values) RGBA() color.NRGBA {
	return color.NRGBA{R: v.Red, G: v.Green, B: v.Blue, A: 255 - v.Opacity}
}

// String returns the rgba() form, for example "rgba(255,255,255,0)".
func (v Values) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", v.Red, v.Green, v.Blue, v.Opacity)
}

// ValuesOf converts any color into Values.
func ValuesOf(c color.Color) Values {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Values{Red: n.R, Green: n.G, Blue: n.B, Opacity: 255 - n.A}
}

// Parse reads "rgba(r,g,b,opacity)", "rgb(r,g,b)" or "#rrggbb"/"#rrggbbaa".
// In the rgba() form the fourth value is an opacity as described on Values.
func Parse(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		vals, err := parseChannels(s[len("rgba("):len(s)-1], 4)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("parse %q: %w", s, err)
		}
		return Values{Red: vals[0], Green: vals[1], Blue: vals[2], Opacity: vals[3]}.RGBA(), nil
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		vals, err := parseChannels(s[len("rgb("):len(s)-1], 3)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("parse %q: %w", s, err)
		}
		return color.NRGBA{R: vals[0], G: vals[1], B: vals[2], A: 255}, nil
	}
	switch s {
	case "white":
		return color.NRGBA(White), nil
	case "black":
		return color.NRGBA(Black), nil
	case "transparent", "none":
		return color.NRGBA{}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unrecognized color %q", s)
}

func parseChannels(body string, n int) ([]uint8, error) {
	parts := strings.Split(body, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d channels, got %d", n, len(parts))
	}
	out := make([]uint8, n)
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, err
		}
		out[i] = uint8(v)
	}
	return out, nil
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q: %w", h, err)
	}
	if len(h) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Same reports whether two colors are identical after conversion to NRGBA.
func Same(a, b color.Color) bool {
	return color.NRGBAModel.Convert(a) == color.NRGBAModel.Convert(b)
}
