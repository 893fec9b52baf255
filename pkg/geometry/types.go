// Package geometry provides the page-space bounds type shared by revisions and comparisons.
package geometry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"artdiff/pkg/errkind"
)

// Index of each edge within a Bounds tuple.
const (
	BoundsLeft = iota
	BoundsTop
	BoundsRight
	BoundsBottom
)

// ErrFormat is returned for bounds that are not exactly four integers. It
// matches errkind.Validation.
var ErrFormat = fmt.Errorf("%w: malformed bounds", errkind.Validation)

// Bounds is a rectangle in page coordinate space, ordered left, top, right, bottom.
// Page space is y-up: top is the larger ordinate.
type Bounds [4]int

// NewBounds creates a Bounds from its four edges.
func NewBounds(left, top, right, bottom int) Bounds {
	return Bounds{left, top, right, bottom}
}

// Left returns the left edge.
func (b Bounds) Left() int { return b[BoundsLeft] }

// Top returns the top edge.
func (b Bounds) Top() int { return b[BoundsTop] }

// Right returns the right edge.
func (b Bounds) Right() int { return b[BoundsRight] }

// Bottom returns the bottom edge.
func (b Bounds) Bottom() int { return b[BoundsBottom] }

// Width returns right - left.
func (b Bounds) Width() int { return b.Right() - b.Left() }

// Height returns top - bottom.
func (b Bounds) Height() int { return b.Top() - b.Bottom() }

// Equal reports whether both bounds have identical edges.
func (b Bounds) Equal(other Bounds) bool { return b == other }

// String returns the textual form "left,top,right,bottom".
func (b Bounds) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b[0], b[1], b[2], b[3])
}

// Union returns the union of b and other using the page-space convention.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		min(b.Left(), other.Left()),
		max(b.Top(), other.Top()),
		max(b.Right(), other.Right()),
		min(b.Bottom(), other.Bottom()),
	}
}

// UnionBounds combines raw edge lists into a single Bounds: the minimum left,
// maximum top, maximum right and minimum bottom. Every entry must hold exactly
// four values and at least one entry is required.
func UnionBounds(list ...[]int) (Bounds, error) {
	if len(list) == 0 {
		return Bounds{}, fmt.Errorf("%w: union of zero bounds", ErrFormat)
	}
	var result Bounds
	for i, raw := range list {
		b, err := FromSlice(raw)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds %d: %w", i, err)
		}
		if i == 0 {
			result = b
			continue
		}
		result = result.Union(b)
	}
	return result, nil
}

// Union folds a non-empty set of Bounds with Bounds.Union.
func Union(first Bounds, rest ...Bounds) Bounds {
	for _, b := range rest {
		first = first.Union(b)
	}
	return first
}

// FromSlice converts a four-element slice into Bounds.
func FromSlice(raw []int) (Bounds, error) {
	if len(raw) != 4 {
		return Bounds{}, fmt.Errorf("%w: want 4 values, got %d", ErrFormat, len(raw))
	}
	return Bounds{raw[0], raw[1], raw[2], raw[3]}, nil
}

// Slice returns the edges as a new slice.
func (b Bounds) Slice() []int {
	return []int{b[0], b[1], b[2], b[3]}
}

// ParseBounds parses the textual form "left,top,right,bottom".
// Whitespace around each value is ignored.
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	var b Bounds
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Bounds{}, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
		}
		b[i] = v
	}
	return b, nil
}

// MarshalJSON encodes the bounds as a four-element array.
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Slice())
}

// UnmarshalJSON decodes a four-element array.
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromSlice(raw)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Size is a pixel size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either dimension is zero.
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// MaxSize returns the component-wise maximum of the given sizes.
func MaxSize(sizes ...Size) Size {
	var out Size
	for _, s := range sizes {
		out.Width = max(out.Width, s.Width)
		out.Height = max(out.Height, s.Height)
	}
	return out
}
