package geometry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiff/pkg/errkind"
)

func TestUnionBounds(t *testing.T) {
	tests := []struct {
		name string
		in   [][]int
		want Bounds
	}{
		{"singleton", [][]int{{0, 10, 10, 0}}, Bounds{0, 10, 10, 0}},
		{"two", [][]int{{0, 10, 5, 0}, {2, 12, 10, 1}}, Bounds{0, 12, 10, 0}},
		{"validation passes", [][]int{{0, 100, 100, 0}, {10, 120, 110, 0}}, Bounds{0, 120, 110, 0}},
		{"negative", [][]int{{-5, 3, 2, -1}, {0, 8, 1, -4}}, Bounds{-5, 8, 2, -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnionBounds(tt.in...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnionBoundsErrors(t *testing.T) {
	_, err := UnionBounds()
	assert.ErrorIs(t, err, ErrFormat)

	_, err = UnionBounds([]int{0, 1, 2})
	assert.ErrorIs(t, err, ErrFormat)

	_, err = UnionBounds([]int{0, 1, 2, 3}, []int{0, 1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, errkind.Validation)

	_, err = ParseBounds("1,2,3")
	assert.ErrorIs(t, err, errkind.Validation)

	_, err = FromSlice([]int{1})
	assert.ErrorIs(t, err, errkind.Validation)
}

func TestUnionKeepsPageConvention(t *testing.T) {
	a := NewBounds(0, 10, 5, 0)
	b := NewBounds(2, 12, 10, 1)
	u := Union(a, b)
	assert.Equal(t, 0, u.Left())
	assert.Equal(t, 12, u.Top())
	assert.Equal(t, 10, u.Right())
	assert.Equal(t, 0, u.Bottom())
	assert.Equal(t, 10, u.Width())
	assert.Equal(t, 12, u.Height())
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("0, 120,110,0")
	require.NoError(t, err)
	assert.Equal(t, Bounds{0, 120, 110, 0}, b)
	assert.Equal(t, "0,120,110,0", b.String())

	for _, bad := range []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d"} {
		_, err := ParseBounds(bad)
		assert.ErrorIs(t, err, ErrFormat, bad)
	}
}

func TestBoundsJSON(t *testing.T) {
	data, err := json.Marshal(Bounds{1, 2, 3, 4})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3,4]`, string(data))

	var b Bounds
	require.NoError(t, json.Unmarshal([]byte(`[5,6,7,8]`), &b))
	assert.Equal(t, Bounds{5, 6, 7, 8}, b)

	assert.Error(t, json.Unmarshal([]byte(`[5,6]`), &b))
}

func TestMaxSize(t *testing.T) {
	assert.Equal(t, Size{Width: 20, Height: 15}, MaxSize(Size{10, 10}, Size{20, 15}))
	assert.True(t, MaxSize().IsZero())
}
