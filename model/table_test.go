package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

func TestTableBuildDescriptor(t *testing.T) {
	_, err := NewTable("products; --")
	assert.Error(t, err)

	table, err := NewTable("products")
	require.NoError(t, err)
	assert.Equal(t, "products", table.Name())

	d, err := table.BuildDescriptor(source.Criteria{"kind": "fruit"}, 1, 10, "name")
	require.NoError(t, err)
	assert.Equal(t, source.Descriptor{
		Table:       "products",
		Where:       []string{"`products`.`kind` = ?"},
		WhereParams: []any{"fruit"},
		OrderBy:     "`products`.name",
	}, d)

	_, err = table.BuildDescriptor(source.Criteria{"kind = 1 OR 1": 1}, 1, 10, "")
	assert.ErrorIs(t, err, cursor.ErrInvalidProperty)
	_, err = table.BuildDescriptor(nil, 1, 10, "name)")
	assert.ErrorIs(t, err, cursor.ErrInvalidProperty)

	table.Join("JOIN `tags` ON `tags`.`product_id` = `products`.`id`", "`tags`.`label` AS tag")
	d, err = table.BuildDescriptor(nil, 1, 10, "")
	require.NoError(t, err)
	assert.True(t, d.Distinct)
	assert.Equal(t, []string{"`tags`.`label` AS tag"}, d.Select)
	sql, _, err := d.CountSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(DISTINCT `products`.id) FROM `products` JOIN `tags` ON `tags`.`product_id` = `products`.`id`", sql)

	row := cursor.RowOf("id", 1)
	got, keep, err := table.BuildFromRow(row)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.True(t, got.Equal(row))
}
