package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"artdiff/internal/model"
	"artdiff/pkg/geometry"
)

func TestMalformedBoundsAreValidationErrors(t *testing.T) {
	_, err := geometry.UnionBounds()
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = geometry.UnionBounds([]int{1, 2, 3})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = geometry.ParseBounds("a,b,c,d")
	assert.ErrorIs(t, err, model.ErrValidation)
}
