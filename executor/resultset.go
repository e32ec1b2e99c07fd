// Package executor provides execution collaborators for query sources:
// database/sql, gorm and Hive executors that buffer a result into a
// movable ResultSet.
package executor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

// ResultSet is a buffered result handle. It holds every row of a result in
// memory, so it can be moved freely after the underlying rows are closed.
type ResultSet struct {
	rows   []cursor.Row
	next   int
	closed bool
}

var _ source.ResultHandle = (*ResultSet)(nil)

// NewResultSet buffers rows.
func NewResultSet(rows []cursor.Row) *ResultSet {
	return &ResultSet{rows: rows}
}

// FromData builds a result set from a 2D slice. Columns are named by
// columns, or column_N when columns is nil. Every row must be as wide as
// the column list.
func FromData(columns []string, data [][]any) (*ResultSet, error) {
	if columns == nil && len(data) > 0 {
		columns = make([]string, len(data[0]))
		for i := range columns {
			columns[i] = fmt.Sprintf("column_%d", i)
		}
	}
	rows := make([]cursor.Row, len(data))
	for i, values := range data {
		if len(values) != len(columns) {
			return nil, cursor.MalformedInput("length of row %d != number of columns: %d != %d", i+1, len(values), len(columns))
		}
		rows[i] = cursor.NewRow(columns, values)
	}
	return NewResultSet(rows), nil
}

func (r *ResultSet) check() error {
	if r.closed {
		return errors.New("result set is closed")
	}
	return nil
}

// Move positions the set so the next FetchRow returns row n. Positions past
// the end leave the set exhausted.
func (r *ResultSet) Move(n int) error {
	if err := r.check(); err != nil {
		return err
	}
	if n < 0 {
		return errors.Errorf("invalid row position %d", n)
	}
	r.next = min(n, len(r.rows))
	return nil
}

func (r *ResultSet) MoveFirst() error {
	return r.Move(0)
}

func (r *ResultSet) FetchRow() (cursor.Row, bool, error) {
	if err := r.check(); err != nil {
		return cursor.Row{}, false, err
	}
	if r.next >= len(r.rows) {
		return cursor.Row{}, false, nil
	}
	row := r.rows[r.next]
	r.next++
	return row, true, nil
}

func (r *ResultSet) RecordCount() int {
	return len(r.rows)
}

func (r *ResultSet) CurrentRow() int {
	return r.next
}

// Close drops the buffered rows.
func (r *ResultSet) Close() error {
	r.rows, r.next, r.closed = nil, 0, true
	return nil
}
