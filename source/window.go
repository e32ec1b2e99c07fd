package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// window pages a query: it probes the total once, clamps the page, then
// enumerates the page through a nested QuerySource built once.
type window[T any] struct {
	owner     string
	exec      Executor
	conf      config
	opts      []Option
	transform cursor.Transform[cursor.Row, T]
	pager     pagination

	// probe returns the count query; query the main query for a page.
	probe func() (string, []any, error)
	query func(limit, offset int) (string, []any, error)

	probed  bool
	inner   *QuerySource[T]
	err     error
	count   int
	counted bool
}

func (w *window[T]) settle() error {
	if w.probed {
		return nil
	}
	sql, params, err := w.probe()
	if err != nil {
		return err
	}
	v, err := w.exec.GetOne(w.conf.ctx, sql, params)
	if err != nil {
		return errors.Wrap(err, "failed to count records")
	}
	total, err := asInt(v)
	if err != nil {
		return errors.Wrap(err, "failed to count records")
	}
	w.pager.settle(total)
	w.probed = true
	w.conf.log.Debug().
		Int("total", total).
		Int("page", w.pager.page).
		Int("pages", w.pager.pageCount).
		Msg("probed record count")
	return nil
}

func (w *window[T]) mainQuery() (string, []any, error) {
	if err := w.settle(); err != nil {
		return "", nil, err
	}
	return w.query(w.pager.perPage, w.pager.offset())
}

func (w *window[T]) open() error {
	sql, params, err := w.mainQuery()
	if err != nil {
		return err
	}
	w.inner, err = NewQuerySource(w.exec, sql, params, w.transform, w.opts...)
	return err
}

// pageCursor returns the page cursor, building it on first use. A build
// failure is kept until Rewind.
func (w *window[T]) pageCursor() (*QuerySource[T], error) {
	if w.inner == nil && w.err == nil {
		w.err = w.open()
	}
	return w.inner, w.err
}

func (w *window[T]) Current() (cursor.Result[T], error) {
	q, err := w.pageCursor()
	if err != nil {
		return cursor.Exhausted[T](), err
	}
	return q.Current()
}

func (w *window[T]) Key() cursor.Key {
	q, err := w.pageCursor()
	if err != nil {
		return nil
	}
	return q.Key()
}

func (w *window[T]) Next() (cursor.Result[T], error) {
	q, err := w.pageCursor()
	if err != nil {
		return cursor.Exhausted[T](), err
	}
	return q.Next()
}

func (w *window[T]) Valid() bool {
	q, err := w.pageCursor()
	if err != nil {
		return false
	}
	return q.Valid()
}

func (w *window[T]) Err() error {
	if w.err != nil {
		return w.err
	}
	if w.inner != nil {
		return w.inner.Err()
	}
	return nil
}

func (w *window[T]) Rewind() error {
	w.err = nil
	q, err := w.pageCursor()
	if err != nil {
		return err
	}
	return q.Rewind()
}

// Start repositions within the page.
func (w *window[T]) Start(offset int) error {
	w.err = nil
	q, err := w.pageCursor()
	if err != nil {
		return err
	}
	return q.Start(offset)
}

// Count returns the number of records on the page.
func (w *window[T]) Count() (int, error) {
	if w.counted {
		return w.count, nil
	}
	q, err := w.pageCursor()
	if err != nil {
		return 0, err
	}
	n, err := q.Count()
	if err != nil {
		return 0, err
	}
	w.count, w.counted = n, true
	return n, nil
}

// Close releases the page's result handle.
func (w *window[T]) Close() error {
	if w.inner == nil {
		return nil
	}
	return w.inner.Close()
}

// Page returns the page number, clamped into the available pages.
func (w *window[T]) Page() (int, error) {
	if err := w.settle(); err != nil {
		return 0, err
	}
	return w.pager.page, nil
}

// PerPage returns the page size, 0 for a single unbounded page.
func (w *window[T]) PerPage() int {
	return w.pager.perPage
}

// PageCount returns the number of pages.
func (w *window[T]) PageCount() (int, error) {
	if err := w.settle(); err != nil {
		return 0, err
	}
	return w.pager.pageCount, nil
}

// Total returns the number of records over all pages.
func (w *window[T]) Total() (int, error) {
	if err := w.settle(); err != nil {
		return 0, err
	}
	return w.pager.total, nil
}

// First returns the 1-based number of the first record on the page, 0 when
// there are no records.
func (w *window[T]) First() (int, error) {
	if err := w.settle(); err != nil {
		return 0, err
	}
	return w.pager.first(), nil
}

// Last returns the 1-based number of the last record on the page.
func (w *window[T]) Last() (int, error) {
	if err := w.settle(); err != nil {
		return 0, err
	}
	return w.pager.last(), nil
}

// SQL returns the main query of the page.
func (w *window[T]) SQL() (string, []any, error) {
	return w.mainQuery()
}

// Rows returns an independent cursor over the raw rows of the page.
func (w *window[T]) Rows() (*QuerySource[cursor.Row], error) {
	sql, params, err := w.mainQuery()
	if err != nil {
		return nil, err
	}
	return NewRowQuery(w.exec, sql, params, w.opts...)
}

func (w *window[T]) Keys() ([]cursor.Key, error) {
	q, err := w.pageCursor()
	if err != nil {
		return nil, err
	}
	return q.Keys()
}

func (w *window[T]) Has(key cursor.Key) (bool, error) {
	q, err := w.pageCursor()
	if err != nil {
		return false, err
	}
	return q.Has(key)
}

func (w *window[T]) Lookup(key cursor.Key) (T, bool, error) {
	q, err := w.pageCursor()
	if err != nil {
		var zero T
		return zero, false, err
	}
	return q.Lookup(key)
}

func (w *window[T]) ToArray() ([]cursor.Entry[T], error) {
	q, err := w.pageCursor()
	if err != nil {
		return nil, err
	}
	return q.ToArray()
}

func (w *window[T]) Set(cursor.Key, T) error {
	return cursor.UnsupportedOperation(w.owner, "set")
}

func (w *window[T]) Unset(cursor.Key) error {
	return cursor.UnsupportedOperation(w.owner, "unset")
}

// Property returns a named property: page, per_page, page_count (pages),
// total (record_count), first (start), last (end), count, sql or rows.
func (w *window[T]) Property(name string) (any, error) {
	switch name {
	case "page":
		return w.Page()
	case "per_page":
		return w.PerPage(), nil
	case "page_count", "pages":
		return w.PageCount()
	case "total", "record_count":
		return w.Total()
	case "first", "start":
		return w.First()
	case "last", "end":
		return w.Last()
	case "count":
		return w.Count()
	case "sql":
		sql, _, err := w.SQL()
		return sql, err
	case "rows", "array":
		return w.Rows()
	}
	return nil, cursor.InvalidProperty(w.owner, name)
}

// asInt converts a scalar returned by a count probe.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, errors.Errorf("count %d overflows int", n)
		}
		return int(n), nil
	case float32:
		return int(n), nil
	case float64:
		return int(n), nil
	case []byte:
		return asInt(string(n))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errors.Wrapf(err, "invalid count %q", n)
		}
		return i, nil
	}
	return 0, errors.Errorf("invalid count of type %T", v)
}
