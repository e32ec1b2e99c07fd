package executor

import (
	"context"
	"strings"

	"github.com/beltran/gohive"
	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
	"github.com/go-data-exporter/cursor/tostring"
)

// Hive executes queries on a HiveServer2 connection. HiveQL has no bind
// parameters, so placeholders are replaced with literals by Bind.
type Hive struct {
	conn *gohive.Connection
}

var _ source.Executor = (*Hive)(nil)

func NewHive(conn *gohive.Connection) *Hive {
	return &Hive{conn: conn}
}

func (h *Hive) Execute(ctx context.Context, query string, params []any) (source.ResultHandle, error) {
	bound, err := Bind(query, params)
	if err != nil {
		return nil, err
	}
	c := h.conn.Cursor()
	defer c.Close()
	c.Exec(ctx, bound)
	if c.Err != nil {
		return nil, errors.Wrap(c.Err, "failed to run query")
	}
	columns := hiveColumns(c.Description())

	var rows []cursor.Row
	for c.HasMore(ctx) {
		if c.Err != nil {
			return nil, errors.Wrap(c.Err, "failed to fetch rows")
		}
		current := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range current {
			ptrs[i] = &current[i]
		}
		c.FetchOne(ctx, ptrs...)
		if c.Err != nil {
			return nil, errors.Wrap(c.Err, "failed to fetch row")
		}
		rows = append(rows, cursor.NewRow(columns, current))
	}
	if c.Err != nil {
		return nil, errors.Wrap(c.Err, "failed to fetch rows")
	}
	return NewResultSet(rows), nil
}

func (h *Hive) GetOne(ctx context.Context, query string, params []any) (any, error) {
	res, err := h.Execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	row, ok, err := res.FetchRow()
	if err != nil || !ok {
		return nil, err
	}
	return row.At(0), nil
}

// hiveColumns names the columns of a result description, dropping the
// table qualifier Hive prefixes them with.
func hiveColumns(description [][]string) []string {
	columns := make([]string, 0, len(description))
	for _, d := range description {
		if len(d) == 0 {
			continue
		}
		name := d[0]
		if _, unqualified, ok := strings.Cut(name, "."); ok {
			name = unqualified
		}
		columns = append(columns, name)
	}
	return columns
}

// Bind replaces each ? placeholder outside quoted text and identifiers with
// the SQL literal of the matching parameter.
func Bind(query string, params []any) (string, error) {
	var (
		b     strings.Builder
		quote rune
		n     int
	)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			if n >= len(params) {
				return "", cursor.MalformedInput("query has more placeholders than the %d parameters", len(params))
			}
			b.WriteString(tostring.SQLLiteral(params[n]))
			n++
			continue
		}
		b.WriteRune(r)
	}
	if n != len(params) {
		return "", cursor.MalformedInput("query has %d placeholders for %d parameters", n, len(params))
	}
	return b.String(), nil
}
