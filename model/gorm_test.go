package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/executor"
	"github.com/go-data-exporter/cursor/source"
)

type product struct {
	gorm.Model
	Name  string
	Kind  string
	Price int
}

// openProducts seeds apple(1), banana(2), cherry(3), date(4, deleted),
// fig(5), kale(6) and leek(7).
func openProducts(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := executor.OpenSQLite(":memory:", &product{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Create([]*product{
		{Name: "apple", Kind: "fruit", Price: 3},
		{Name: "banana", Kind: "fruit", Price: 2},
		{Name: "cherry", Kind: "fruit", Price: 9},
		{Name: "date", Kind: "fruit", Price: 7},
		{Name: "fig", Kind: "fruit", Price: 6},
		{Name: "kale", Kind: "vegetable", Price: 4},
		{Name: "leek", Kind: "vegetable", Price: 5},
	}).Error)
	require.NoError(t, db.Delete(&product{}, 4).Error)
	return db
}

func names(entries []cursor.Entry[*product]) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Value.Name
	}
	return out
}

func TestTablePagedViewOnSQLite(t *testing.T) {
	exec := executor.NewGorm(openProducts(t))
	table, err := NewTable("products")
	require.NoError(t, err)

	v, err := source.NewPagedView[cursor.Row](exec, table, source.Criteria{"kind": "fruit", "deleted_at": nil}, 2, 2, "name")
	require.NoError(t, err)
	defer v.Close()

	total, err := v.Total()
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	entries, err := cursor.Collect[cursor.Row](v)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Key)
	assert.Equal(t, 5, entries[1].Key)
	name, _ := entries[1].Value.Get("name")
	assert.Equal(t, "fig", name)
}

func TestGormPagedView(t *testing.T) {
	db := openProducts(t)
	exec := executor.NewGorm(db)
	g, err := NewGorm[product](db)
	require.NoError(t, err)
	assert.Equal(t, "products", g.Table())

	v, err := source.NewPagedView[*product](exec, g, source.Criteria{"Kind": "fruit"}, 1, 3, "")
	require.NoError(t, err)
	defer v.Close()

	sql, params, err := v.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `products`.* FROM `products` WHERE `products`.`kind` = ? AND `products`.`deleted_at` IS NULL ORDER BY `products`.`id` LIMIT 3 OFFSET 0", sql)
	assert.Equal(t, []any{"fruit"}, params)

	entries, err := cursor.Collect[*product](v)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, names(entries))
	assert.Equal(t, uint(2), entries[1].Value.ID)
	assert.Equal(t, 9, entries[2].Value.Price)

	total, err := v.Total()
	require.NoError(t, err)
	assert.Equal(t, 4, total, "soft deleted records are not counted")
	pages, err := v.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	again, err := cursor.Collect[*product](v)
	require.NoError(t, err)
	assert.Equal(t, entries[0].Value, again[0].Value)
	assert.NotSame(t, entries[0].Value, again[0].Value, "every pass decodes its own records")

	byPrice, err := source.NewPagedView[*product](exec, g, nil, 1, 2, "price DESC")
	require.NoError(t, err)
	entries, err = cursor.Collect[*product](byPrice)
	require.NoError(t, err)
	assert.Equal(t, []string{"cherry", "fig"}, names(entries))

	bad, err := source.NewPagedView[*product](exec, g, source.Criteria{"colour": "red"}, 1, 2, "")
	require.NoError(t, err)
	_, err = bad.Total()
	assert.ErrorIs(t, err, cursor.ErrInvalidProperty)
}

func TestGormByID(t *testing.T) {
	db := openProducts(t)
	g, err := NewGorm[product](db)
	require.NoError(t, err)

	p, found, err := g.ByID(2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "banana", p.Name)

	require.NoError(t, db.Model(&product{}).Where("id = ?", 2).Update("name", "plantain").Error)
	p.Name = "changed by caller"
	cached, _, err := g.ByID(int64(2))
	require.NoError(t, err)
	assert.NotSame(t, p, cached)
	assert.Equal(t, "banana", cached.Name, "served from the cache")

	_, found, err = g.ByID(4)
	require.NoError(t, err)
	assert.False(t, found, "soft deleted")
	_, found, err = g.ByID(99)
	require.NoError(t, err)
	assert.False(t, found)

	g.Purge()
	reloaded, _, err := g.ByID(2)
	require.NoError(t, err)
	assert.Equal(t, "plantain", reloaded.Name)
}

func TestGormByIDStringKeys(t *testing.T) {
	g, err := NewGorm[product](openProducts(t))
	require.NoError(t, err)

	src, err := source.NewArraySource[string, *product]([]string{"name = 'leek'", "7", "1 OR 1 = 1"}, IDTransform[string](g))
	require.NoError(t, err)
	entries, err := src.ToArray()
	require.NoError(t, err)
	require.Len(t, entries, 1, "keys are bound as values")
	assert.Equal(t, 1, entries[0].Key)
	assert.Equal(t, "leek", entries[0].Value.Name)
}

func TestGormRowsDecodeFresh(t *testing.T) {
	db := openProducts(t)
	exec := executor.NewGorm(db)
	g, err := NewGorm[product](db)
	require.NoError(t, err)

	cached, _, err := g.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "apple", cached.Name)

	first, err := source.NewPagedView[*product](exec, g, source.Criteria{"Kind": "fruit"}, 1, 2, "")
	require.NoError(t, err)
	before, err := cursor.Collect[*product](first)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, names(before))

	require.NoError(t, db.Model(&product{}).Where("id = ?", 1).Update("name", "apricot").Error)

	second, err := source.NewPagedView[*product](exec, g, source.Criteria{"Kind": "fruit"}, 1, 2, "")
	require.NoError(t, err)
	after, err := cursor.Collect[*product](second)
	require.NoError(t, err)
	assert.Equal(t, []string{"apricot", "banana"}, names(after))
	assert.NotSame(t, before[0].Value, after[0].Value)
	assert.Equal(t, "apple", before[0].Value.Name, "views share no records")

	reloaded, _, err := g.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "apricot", reloaded.Name, "decoded rows evict cached records")
}

func TestIDTransform(t *testing.T) {
	g, err := NewGorm[product](openProducts(t), WithCache(0, 0))
	require.NoError(t, err)

	src, err := source.NewArraySource[int, *product]([]int{5, 4, 1}, IDTransform[int](g))
	require.NoError(t, err)
	entries, err := cursor.Collect[*product](src)
	require.NoError(t, err)
	assert.Equal(t, []cursor.Key{0, 2}, []cursor.Key{entries[0].Key, entries[1].Key})
	assert.Equal(t, []string{"fig", "apple"}, names(entries))

	again, err := cursor.Collect[*product](src)
	require.NoError(t, err)
	assert.NotSame(t, entries[0].Value, again[0].Value, "caching is disabled")
}

func TestGormBuildFromRow(t *testing.T) {
	g, err := NewGorm[product](openProducts(t))
	require.NoError(t, err)

	p, keep, err := g.BuildFromRow(cursor.RowOf("id", int64(42), "name", "quince", "extra", "ignored"))
	require.NoError(t, err)
	require.True(t, keep)
	assert.Equal(t, uint(42), p.ID)
	assert.Equal(t, "quince", p.Name)

	_, _, err = g.BuildFromRow(cursor.RowOf("price", "expensive"))
	assert.Error(t, err)
}
