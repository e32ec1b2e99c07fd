package source

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// Criteria are the filters a Builder turns into a query descriptor, keyed
// by field name.
type Criteria map[string]any

// Builder translates criteria into a query descriptor and rows into domain
// values.
type Builder[T any] interface {
	BuildDescriptor(criteria Criteria, page, perPage int, orderBy string) (Descriptor, error)
	BuildFromRow(row cursor.Row) (T, bool, error)
}

// Descriptor is one logical query: a table with joins, filters, extra
// select expressions and ordering. Each clause list is combined in order;
// Where clauses are joined with AND.
type Descriptor struct {
	Table        string
	Joins        []string
	JoinParams   [][]any
	Where        []string
	WhereParams  []any
	Select       []string
	SelectParams []any
	// SelectOnly drops the table's own columns from the select list.
	SelectOnly bool
	Distinct   bool
	GroupBy    string
	OrderBy    string
	// Key is the expression counted by a distinct probe. Default is the
	// table's id column.
	Key string
}

func (d Descriptor) validate() error {
	switch {
	case d.Table == "":
		return errors.New("descriptor has no table")
	case len(d.JoinParams) > len(d.Joins):
		return errors.Errorf("descriptor has parameters for %d joins but only %d joins", len(d.JoinParams), len(d.Joins))
	case d.SelectOnly && len(d.Select) == 0:
		return errors.New("select-only descriptor has an empty select list")
	}
	return nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d Descriptor) key() string {
	if d.Key != "" {
		return d.Key
	}
	return quoteIdent(d.Table) + ".id"
}

// from renders the FROM, JOIN, WHERE and GROUP BY clauses.
func (d Descriptor) from(groupBy string) string {
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(d.Table))
	for _, j := range d.Joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}
	if len(d.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(d.Where, " AND "))
	}
	if groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(groupBy)
	}
	return b.String()
}

func (d Descriptor) filterParams() []any {
	var params []any
	for _, p := range d.JoinParams {
		params = append(params, p...)
	}
	return append(params, d.WhereParams...)
}

// CountSQL renders the total count probe. The select list and ordering are
// left out. A grouped query is counted through a subquery, except for a
// distinct query grouped by its key, which counts the distinct keys.
func (d Descriptor) CountSQL() (string, []any, error) {
	if err := d.validate(); err != nil {
		return "", nil, err
	}
	params := d.filterParams()
	key := d.key()
	switch {
	case d.GroupBy != "" && !(d.Distinct && d.GroupBy == key):
		inner := "1"
		if d.Distinct {
			inner = "DISTINCT " + key
		}
		return "SELECT COUNT(*) FROM (SELECT " + inner + d.from(d.GroupBy) + ") AS grouped", params, nil
	case d.Distinct:
		return "SELECT COUNT(DISTINCT " + key + ")" + d.from(""), params, nil
	}
	return "SELECT COUNT(*)" + d.from(""), params, nil
}

// SelectSQL renders the main query. A positive limit adds LIMIT and OFFSET.
func (d Descriptor) SelectSQL(limit, offset int) (string, []any, error) {
	if err := d.validate(); err != nil {
		return "", nil, err
	}
	columns := make([]string, 0, len(d.Select)+1)
	if !d.SelectOnly {
		columns = append(columns, quoteIdent(d.Table)+".*")
	}
	columns = append(columns, d.Select...)

	var b strings.Builder
	b.WriteString("SELECT ")
	if d.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(d.from(d.GroupBy))
	if d.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(d.OrderBy)
	}
	b.WriteString(limitClause(limit, offset))

	params := append(append([]any(nil), d.SelectParams...), d.filterParams()...)
	return b.String(), params, nil
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(max(offset, 0))
}
