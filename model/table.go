package model

import (
	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

// Table builds descriptors over one table by column name and yields its
// rows unchanged.
type Table struct {
	name     string
	distinct bool
	joins    []string
	selects  []string
}

var _ source.Builder[cursor.Row] = (*Table)(nil)

func NewTable(name string) (*Table, error) {
	if !identifier.MatchString(name) {
		return nil, errors.Errorf("invalid table name %q", name)
	}
	return &Table{name: name}, nil
}

// Join adds a join clause, for example "LEFT JOIN `b` ON `b`.`a_id` = `a`.`id`".
// Joined rows are de-duplicated by the table's id.
func (t *Table) Join(clause string, selects ...string) *Table {
	t.joins = append(t.joins, clause)
	t.selects = append(t.selects, selects...)
	t.distinct = true
	return t
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) column(key string) (string, error) {
	if !identifier.MatchString(key) {
		return "", cursor.InvalidProperty(t.name, key)
	}
	return quote(t.name) + "." + quote(key), nil
}

func (t *Table) BuildDescriptor(criteria source.Criteria, page, perPage int, order string) (source.Descriptor, error) {
	clauses, params, err := where(criteria, t.column)
	if err != nil {
		return source.Descriptor{}, err
	}
	ob, err := orderBy(t.name, order)
	if err != nil {
		return source.Descriptor{}, err
	}
	return source.Descriptor{
		Table:       t.name,
		Joins:       t.joins,
		Where:       clauses,
		WhereParams: params,
		Select:      t.selects,
		Distinct:    t.distinct,
		OrderBy:     ob,
	}, nil
}

func (t *Table) BuildFromRow(row cursor.Row) (cursor.Row, bool, error) {
	return row, true, nil
}
