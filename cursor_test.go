package cursor_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-data-exporter/cursor"
	tsvcodec "github.com/go-data-exporter/cursor/codec/tsv"
	"github.com/go-data-exporter/cursor/source"
)

func TestResult(t *testing.T) {
	r := cursor.Found[bool]("k", false)
	v, ok := r.Get()
	assert.True(t, ok, "a false value is still a value")
	assert.False(t, v)
	assert.False(t, r.Exhausted())
	assert.Equal(t, "k", r.Key())

	e := cursor.Exhausted[int]()
	assert.True(t, e.Exhausted())
	assert.Zero(t, e.Value())
	assert.Nil(t, e.Key())
}

func TestCollectAndTake(t *testing.T) {
	src := source.FromSlice([]string{"a", "b", "c"})
	all, err := cursor.Collect[string](src)
	require.NoError(t, err)
	assert.Equal(t, []cursor.Entry[string]{{Key: 0, Value: "a"}, {Key: 1, Value: "b"}, {Key: 2, Value: "c"}}, all)

	two, err := cursor.Take[string](src, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	none, err := cursor.Take[string](src, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestForEachStopsOnError(t *testing.T) {
	src := source.FromSlice([]int{1, 2, 3})
	boom := errors.New("boom")
	calls := 0
	err := cursor.ForEach[int](src, func(_ cursor.Key, v int) (bool, error) {
		calls++
		if v == 2 {
			return false, boom
		}
		return true, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestTransforms(t *testing.T) {
	double := cursor.Map(func(x int) int { return x * 2 })
	odd := cursor.Filter(func(x int) bool { return x%2 == 1 })
	chain := cursor.Then(odd, double)

	v, keep, err := chain(3)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, 6, v)

	_, keep, err = chain(4)
	require.NoError(t, err)
	assert.False(t, keep)

	scale := cursor.Bind(func(x, factor int) (int, bool, error) {
		return x * factor, true, nil
	}, 10)
	v, _, _ = scale(4)
	assert.Equal(t, 40, v)
}

func TestExporterWritesCursor(t *testing.T) {
	src := source.FromSlice([]cursor.Row{
		cursor.RowOf("id", 1, "name", "a"),
		cursor.RowOf("id", 2, "name", "b"),
	})
	var buf bytes.Buffer
	require.NoError(t, cursor.NewExporter(cursor.RowsOf[cursor.Row](src), tsvcodec.New(tsvcodec.WithLF())).Write(&buf))
	assert.Equal(t, "id\tname\n1\ta\n2\tb\n", buf.String())
}

func TestExporterWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	rows := cursor.FromRows(cursor.RowOf("x", 1))
	require.NoError(t, cursor.NewExporter(rows, tsvcodec.New()).WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\r\n1\r\n", string(data))

	err = cursor.NewExporter(cursor.FromRows(), tsvcodec.New()).WriteFile(filepath.Join(t.TempDir(), "missing", "out.tsv"))
	assert.ErrorIs(t, err, cursor.ErrIO)
}

func TestRowsOfRejectsNonRows(t *testing.T) {
	rows := cursor.RowsOf[int](source.FromSlice([]int{1}))
	require.True(t, rows.Next())
	_, err := rows.ScanRow()
	assert.ErrorIs(t, err, cursor.ErrMalformedInput)
}

func TestTempPath(t *testing.T) {
	a, b := cursor.TempPath(".tsv"), cursor.TempPath(".tsv")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".tsv"))
	assert.Equal(t, os.TempDir(), filepath.Dir(a))
}
