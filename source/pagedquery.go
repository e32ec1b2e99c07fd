package source

import (
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

var (
	distinctHead = regexp.MustCompile(`(?is)^\s*SELECT\s+DISTINCT\s+([^,\s]+)`)
	selectHead   = regexp.MustCompile(`(?is)^\s*SELECT\s+.+?\s+FROM\s+`)
	orderTail    = regexp.MustCompile(`(?is)\s+ORDER\s+BY\s+.+$`)
)

// CountQuery rewrites a SELECT into the query counting its rows: the select
// list becomes COUNT(*), or COUNT(DISTINCT x) for SELECT DISTINCT x, and a
// trailing ORDER BY is dropped.
func CountQuery(query string) (string, error) {
	query = trimQuery(query)
	if !selectHead.MatchString(query) {
		return "", cursor.MalformedInput("not a SELECT ... FROM query: %q", query)
	}
	count := "COUNT(*)"
	if m := distinctHead.FindStringSubmatch(query); m != nil {
		count = "COUNT(DISTINCT " + m[1] + ")"
	}
	loc := selectHead.FindStringIndex(query)
	counted := "SELECT " + count + " FROM " + query[loc[1]:]
	return orderTail.ReplaceAllString(counted, ""), nil
}

func trimQuery(query string) string {
	return strings.TrimRight(strings.TrimSpace(query), ";")
}

// PagedQuery is one page of an arbitrary SELECT. The total is probed with
// CountQuery and the page is cut with LIMIT and OFFSET.
type PagedQuery[T any] struct {
	window[T]

	base   string
	params []any
}

// NewPagedQuery prepares page of query, perPage rows per page. A nil
// transform yields cursor.Row values.
func NewPagedQuery[T any](exec Executor, query string, params []any, transform cursor.Transform[cursor.Row, T], page, perPage int, opts ...Option) (*PagedQuery[T], error) {
	switch {
	case exec == nil:
		return nil, errors.New("an executor is required")
	case strings.TrimSpace(query) == "":
		return nil, errors.New("query text is required")
	case perPage < 0:
		return nil, errors.Errorf("invalid page size %d", perPage)
	}
	if transform == nil {
		var err error
		if transform, err = identity[cursor.Row, T](); err != nil {
			return nil, err
		}
	}
	q := &PagedQuery[T]{
		window: window[T]{
			owner:     "PagedQuery",
			exec:      exec,
			conf:      newConfig("pagedquery", opts),
			opts:      opts,
			transform: transform,
			pager:     pagination{page: page, perPage: perPage},
		},
		base:   trimQuery(query),
		params: slices.Clone(params),
	}
	q.probe = q.countQuery
	q.query = q.pageQuery
	return q, nil
}

func (q *PagedQuery[T]) countQuery() (string, []any, error) {
	sql, err := CountQuery(q.base)
	return sql, q.params, err
}

func (q *PagedQuery[T]) pageQuery(limit, offset int) (string, []any, error) {
	return q.base + limitClause(limit, offset), q.params, nil
}

// Query returns the unpaged query text.
func (q *PagedQuery[T]) Query() string {
	return q.base
}
