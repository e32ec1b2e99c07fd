package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

type fruit struct {
	ID    uint
	Name  string
	Color string
}

func openFruits(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(path, &fruit{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Create([]*fruit{
		{Name: "apple", Color: "red"},
		{Name: "banana", Color: "yellow"},
		{Name: "cherry", Color: "red"},
		{Name: "lemon", Color: "yellow"},
		{Name: "plum", Color: "purple"},
	}).Error)
	return db
}

func TestGormExecutor(t *testing.T) {
	exec := NewGorm(openFruits(t, ":memory:"))
	ctx := context.Background()

	res, err := exec.Execute(ctx, "SELECT id, name FROM fruits WHERE color = ? ORDER BY id", []any{"red"})
	require.NoError(t, err)
	defer res.Close()
	assert.Equal(t, 2, res.RecordCount())

	row, ok, err := res.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, row.Columns())
	assert.Equal(t, []any{int64(1), "apple"}, row.Values())

	n, err := exec.GetOne(ctx, "SELECT COUNT(*) FROM fruits WHERE color = ?", []any{"yellow"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = exec.Execute(ctx, "SELECT * FROM vegetables", nil)
	assert.Error(t, err)
	_, err = exec.GetOne(ctx, "SELECT id FROM fruits WHERE name = ?", []any{"kiwi"})
	assert.Error(t, err)
}

func TestSQLExecutor(t *testing.T) {
	db := openFruits(t, filepath.Join(t.TempDir(), "fruits.db"))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	exec := NewSQL(sqlDB)
	ctx := context.Background()

	res, err := exec.Execute(ctx, "SELECT name, color FROM fruits ORDER BY name DESC", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.RecordCount())
	require.NoError(t, res.Move(4))
	row, ok, err := res.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, row.Equal(cursor.RowOf("name", "apple", "color", "red")))

	v, err := exec.GetOne(ctx, "SELECT name FROM fruits WHERE id = ?", []any{3})
	require.NoError(t, err)
	assert.Equal(t, "cherry", v)
}

func TestQuerySourceOnSQLite(t *testing.T) {
	exec := NewGorm(openFruits(t, ":memory:"))
	q, err := source.NewRowQuery(exec, "SELECT id, name FROM fruits WHERE color <> ? ORDER BY id", []any{"purple"})
	require.NoError(t, err)
	defer q.Close()

	entries, err := cursor.Collect[cursor.Row](q)
	require.NoError(t, err)
	keys := make([]cursor.Key, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []cursor.Key{1, 2, 3, 4}, keys, "rows are keyed by id")

	row, found, err := q.Lookup(3)
	require.NoError(t, err)
	require.True(t, found)
	name, _ := row.Get("name")
	assert.Equal(t, "cherry", name)

	path, err := q.ToCSV(filepath.Join(t.TempDir(), "fruits.csv"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,apple\n2,banana\n3,cherry\n4,lemon\n", string(data))
}

func TestPagedQueryOnSQLite(t *testing.T) {
	exec := NewGorm(openFruits(t, ":memory:"))
	q, err := source.NewPagedQuery[string](exec, "SELECT name FROM fruits ORDER BY name", nil, func(row cursor.Row) (string, bool, error) {
		return row.At(0).(string), true, nil
	}, 2, 2)
	require.NoError(t, err)
	defer q.Close()

	entries, err := cursor.Collect[string](q)
	require.NoError(t, err)
	assert.Equal(t, []cursor.Entry[string]{{Key: 0, Value: "cherry"}, {Key: 1, Value: "lemon"}}, entries)

	total, err := q.Total()
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	pages, err := q.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}
