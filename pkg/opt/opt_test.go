package opt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	unset := None[string]()
	assert.False(t, unset.IsSet())
	assert.Equal(t, "x", unset.Or("x"))
	assert.Nil(t, unset.Ptr())

	empty := Some("")
	assert.True(t, empty.IsSet())
	v, ok := empty.Get()
	assert.True(t, ok)
	assert.Equal(t, "", v)

	assert.True(t, Equal(None[int](), None[int]()))
	assert.False(t, Equal(None[int](), Some(0)))
	assert.True(t, Equal(Some(3), Some(3)))

	n := 7
	assert.Equal(t, Some(7), FromPtr(&n))
	assert.Equal(t, None[int](), FromPtr[int](nil))
	assert.Panics(t, func() { None[int]().MustGet() })
}

func TestValueJSON(t *testing.T) {
	type doc struct {
		A Value[int]    `json:"a"`
		B Value[string] `json:"b"`
	}
	data, err := json.Marshal(doc{A: Some(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0,"b":null}`, string(data))

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":""}`), &d))
	assert.False(t, d.A.IsSet())
	assert.Equal(t, Some(""), d.B)
}
