package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRowRepeatedColumns(t *testing.T) {
	r := NewRow([]string{"id", "name", "id", "extra"}, []any{1, "a", 2})
	assert.Equal(t, []string{"id", "name", "extra"}, r.Columns())
	assert.Equal(t, []any{2, "a", nil}, r.Values())
}

func TestRowAccess(t *testing.T) {
	r := RowOf("id", 7, "name", "x")
	v, ok := r.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 7, r.At(0))
	assert.Nil(t, r.At(5))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]any{"id": 7, "name": "x"}, r.Map())

	w := r.With("name", "y").With("n", 1)
	assert.Equal(t, []string{"id", "name", "n"}, w.Columns())
	assert.Equal(t, "x", r.At(1), "With must not modify the receiver")
	assert.True(t, w.Without("n").Equal(RowOf("id", 7, "name", "y")))
}

func TestRowID(t *testing.T) {
	id, ok := RowOf("id", int64(42)).ID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = RowOf("id", nil).ID()
	assert.False(t, ok)
	_, ok = RowOf("name", "x").ID()
	assert.False(t, ok)
}

type point struct{ x, y int }

func (p point) Row() Row {
	return RowOf("x", p.x, "y", p.y)
}

func TestAsRow(t *testing.T) {
	r, err := AsRow(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Columns())

	r, err = AsRow(point{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, r.Values())

	row := RowOf("k", "v")
	r, err = AsRow(&row)
	require.NoError(t, err)
	assert.True(t, r.Equal(row))

	_, err = AsRow(42)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, 42, NormalizeKey(int64(42)))
	assert.Equal(t, 42, NormalizeKey(uint8(42)))
	assert.Equal(t, "42", NormalizeKey([]byte("42")))
	assert.Equal(t, "k", NormalizeKey("k"))
	assert.Nil(t, NormalizeKey(nil))
	assert.Equal(t, 1.5, NormalizeKey(1.5))
}
