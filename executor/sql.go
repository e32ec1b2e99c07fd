package executor

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

// FromSQLRows buffers every remaining row of rows into a result set and
// closes rows. Byte slices are converted to strings.
func FromSQLRows(rows *sql.Rows) (*ResultSet, error) {
	defer rows.Close()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read column types")
	}
	columns := make([]string, len(types))
	for i, c := range types {
		columns[i] = c.Name()
	}

	current := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	var buffered []cursor.Row
	for rows.Next() {
		for i := range current {
			ptrs[i] = &current[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		values := make([]any, len(current))
		for i, v := range current {
			values[i] = scalar(v)
		}
		buffered = append(buffered, cursor.NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}
	if err := rows.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close rows")
	}
	return NewResultSet(buffered), nil
}

func scalar(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// SQL executes queries on a database/sql handle.
type SQL struct {
	db *sql.DB
}

var _ source.Executor = (*SQL)(nil)

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Execute(ctx context.Context, query string, params []any) (source.ResultHandle, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run query")
	}
	return FromSQLRows(rows)
}

func (s *SQL) GetOne(ctx context.Context, query string, params []any) (any, error) {
	var v any
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&v); err != nil {
		return nil, errors.Wrap(err, "failed to run query")
	}
	return scalar(v), nil
}
