package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

func TestWhere(t *testing.T) {
	criteria := source.Criteria{
		"e": []byte("raw"),
		"b": nil,
		"a": 1,
		"c": []string{"x", "y"},
		"d": []int{},
	}
	clauses, params, err := where(criteria, func(key string) (string, error) {
		return quote(key), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"`a` = ?", "`b` IS NULL", "`c` IN (?, ?)", "1 = 0", "`e` = ?"}, clauses)
	assert.Equal(t, []any{1, "x", "y", []byte("raw")}, params)

	boom := errors.New("unknown")
	_, _, err = where(source.Criteria{"a": 1}, func(string) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	clauses, params, err = where(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, clauses)
	assert.Empty(t, params)
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		order, want string
	}{
		{"", ""},
		{"name", "`products`.name"},
		{"name, price DESC", "`products`.name, `products`.price DESC"},
		{"p.price asc", "p.price asc"},
	}
	for _, tt := range tests {
		got, err := orderBy("products", tt.order)
		require.NoError(t, err, tt.order)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"name; DROP TABLE products", "name sideways", "1"} {
		_, err := orderBy("products", bad)
		assert.ErrorIs(t, err, cursor.ErrInvalidProperty, bad)
	}
}
