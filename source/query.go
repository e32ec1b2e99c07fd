package source

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-data-exporter/cursor"
	csvcodec "github.com/go-data-exporter/cursor/codec/csv"
	tsvcodec "github.com/go-data-exporter/cursor/codec/tsv"
)

// Executor runs queries for query sources and paged views.
type Executor interface {
	// Execute runs query with positional parameters and returns a movable
	// handle over its result set.
	Execute(ctx context.Context, query string, params []any) (ResultHandle, error)
	// GetOne runs query and returns the first column of its first row.
	GetOne(ctx context.Context, query string, params []any) (any, error)
}

// ResultHandle is a movable cursor over an executed result set.
type ResultHandle interface {
	// Move positions the handle so the next FetchRow returns row n (0-based).
	Move(n int) error
	// MoveFirst is Move(0).
	MoveFirst() error
	// FetchRow returns the row at the current position and advances. It
	// reports false once the result set is exhausted.
	FetchRow() (cursor.Row, bool, error)
	// RecordCount returns the number of rows in the result set.
	RecordCount() int
	// CurrentRow returns the 0-based position of the next row to fetch.
	CurrentRow() int
	// Close releases the result set.
	Close() error
}

// QuerySource enumerates the result of a parameterized query. The query is
// executed on first access. The handle is released once the enumeration is
// exhausted, fails or is closed; rewinding an open handle moves it back and
// rewinding a released one executes the query again. The row count of the
// first execution is kept for the life of the source.
//
// The key of a row is its "id" column when present and not NULL, else the
// row's 0-based position in the result set. Duplicate ids are not detected:
// key lookups resolve to the first row carrying the id.
type QuerySource[T any] struct {
	stepper[T]

	exec      Executor
	query     string
	params    []any
	transform cursor.Transform[cursor.Row, T]
	conf      config

	handle    ResultHandle
	start     int
	keys      []cursor.Key
	positions map[cursor.Key]int
	count     int
	counted   bool
}

// NewQuerySource prepares a cursor over query. A nil transform yields
// cursor.Row values.
func NewQuerySource[T any](exec Executor, query string, params []any, transform cursor.Transform[cursor.Row, T], opts ...Option) (*QuerySource[T], error) {
	if exec == nil {
		return nil, errors.New("an executor is required")
	}
	if query == "" {
		return nil, errors.New("query text is required")
	}
	if transform == nil {
		var err error
		if transform, err = identity[cursor.Row, T](); err != nil {
			return nil, err
		}
	}
	s := &QuerySource[T]{
		exec:      exec,
		query:     query,
		params:    slices.Clone(params),
		transform: transform,
		conf:      newConfig("query", opts),
	}
	s.advance = s.fetch
	return s, nil
}

// NewRowQuery prepares a cursor yielding the raw rows of query.
func NewRowQuery(exec Executor, query string, params []any, opts ...Option) (*QuerySource[cursor.Row], error) {
	return NewQuerySource(exec, query, params, cursor.Identity[cursor.Row](), opts...)
}

// Query returns the query text.
func (s *QuerySource[T]) Query() string {
	return s.query
}

// Params returns a copy of the query parameters.
func (s *QuerySource[T]) Params() []any {
	return slices.Clone(s.params)
}

func (s *QuerySource[T]) logger() *zerolog.Event {
	return s.conf.log.Debug().Str("query", s.query).Int("params", len(s.params))
}

// execute runs the query unless a handle is already open and positions it
// at the logical start.
func (s *QuerySource[T]) execute() error {
	if s.handle != nil {
		return nil
	}
	h, err := s.exec.Execute(s.conf.ctx, s.query, s.params)
	if err != nil {
		return errors.Wrap(err, "failed to execute query")
	}
	s.handle = h
	if !s.counted {
		s.count, s.counted = h.RecordCount(), true
	}
	s.logger().Int("records", h.RecordCount()).Msg("executed query")
	if s.start > 0 {
		if err := s.move(s.start); err != nil {
			s.drop()
			return err
		}
	}
	return nil
}

// drop releases the result handle. A failure is logged so it never masks
// the error that ended the enumeration.
func (s *QuerySource[T]) drop() {
	if s.handle == nil {
		return
	}
	release(s.conf.log, "result handle", s.handle)
	s.handle = nil
}

// idle drops the handle once the enumeration no longer needs it.
func (s *QuerySource[T]) idle() {
	if s.pos.fetched && !s.pos.valid {
		s.drop()
	}
}

func (s *QuerySource[T]) move(n int) error {
	if err := s.handle.Move(n); err != nil {
		return errors.Wrapf(err, "failed to move to row %d", n)
	}
	return nil
}

func rowKey(row cursor.Row, index int) cursor.Key {
	if id, ok := row.ID(); ok {
		return cursor.NormalizeKey(id)
	}
	return index
}

func (s *QuerySource[T]) fetch() error {
	if err := s.execute(); err != nil {
		return err
	}
	for {
		index := s.handle.CurrentRow()
		row, ok, err := s.handle.FetchRow()
		if err != nil {
			s.drop()
			return errors.Wrap(err, "failed to fetch row")
		}
		if !ok {
			s.pos.exhaust()
			s.drop()
			return nil
		}
		v, keep, err := s.transform(row)
		if err != nil {
			s.drop()
			return err
		}
		if keep {
			s.pos.set(rowKey(row, index), v)
			return nil
		}
	}
}

// Rewind moves the handle back to the logical start, executing the query if
// no handle is open.
func (s *QuerySource[T]) Rewind() error {
	s.reset()
	if s.handle == nil {
		if err := s.execute(); err != nil {
			s.err = err
			return err
		}
		return nil
	}
	if err := s.move(s.start); err != nil {
		s.drop()
		s.err = err
		return err
	}
	return nil
}

// Start moves the handle to row offset, or records it for when the query is
// executed.
func (s *QuerySource[T]) Start(offset int) error {
	s.start = max(offset, 0)
	s.reset()
	if s.handle == nil {
		return nil
	}
	if err := s.move(s.start); err != nil {
		s.drop()
		s.err = err
		return err
	}
	return nil
}

// Count returns the number of rows in the result set of the first
// execution.
func (s *QuerySource[T]) Count() (int, error) {
	if s.counted {
		return s.count, nil
	}
	if err := s.execute(); err != nil {
		return 0, err
	}
	s.idle()
	return s.count, nil
}

// Close releases the result handle. The source stays exhausted until
// rewound, which executes the query again.
func (s *QuerySource[T]) Close() error {
	s.finish()
	s.keys, s.positions = nil, nil
	if s.handle == nil {
		return nil
	}
	h := s.handle
	s.handle = nil
	s.conf.log.Debug().Str("query", s.query).Msg("closed result handle")
	return errors.Wrap(h.Close(), "failed to close result handle")
}

// scan walks the whole result set from the first row with fn and restores
// the handle to where the enumeration left it.
func (s *QuerySource[T]) scan(fn func(index int, row cursor.Row) (bool, error)) (err error) {
	if err := s.execute(); err != nil {
		return err
	}
	defer s.idle()
	saved := s.handle.CurrentRow()
	defer func() {
		if merr := s.move(saved); merr != nil {
			if err == nil {
				err = merr
			} else {
				s.conf.log.Warn().Err(merr).Msg("failed to restore result position")
			}
		}
	}()
	if err := s.handle.MoveFirst(); err != nil {
		return errors.Wrap(err, "failed to move to first row")
	}
	for {
		index := s.handle.CurrentRow()
		row, ok, err := s.handle.FetchRow()
		if err != nil {
			return errors.Wrap(err, "failed to fetch row")
		}
		if !ok {
			return nil
		}
		more, err := fn(index, row)
		if err != nil || !more {
			return err
		}
	}
}

// loadKeys builds the key to row position map with one full scan.
func (s *QuerySource[T]) loadKeys() error {
	if s.positions != nil {
		return nil
	}
	var keys []cursor.Key
	positions := make(map[cursor.Key]int)
	err := s.scan(func(index int, row cursor.Row) (bool, error) {
		k := rowKey(row, index)
		keys = append(keys, k)
		if _, seen := positions[k]; !seen {
			positions[k] = index
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	s.keys, s.positions = keys, positions
	return nil
}

// Keys returns the key of every row. The first call scans the result set.
func (s *QuerySource[T]) Keys() ([]cursor.Key, error) {
	if err := s.loadKeys(); err != nil {
		return nil, err
	}
	return slices.Clone(s.keys), nil
}

// Has reports whether a row has key.
func (s *QuerySource[T]) Has(key cursor.Key) (bool, error) {
	if err := s.loadKeys(); err != nil {
		return false, err
	}
	_, ok := s.positions[cursor.NormalizeKey(key)]
	return ok, nil
}

// Lookup fetches and converts the row with key, then restores the handle
// position. It reports false for unknown keys and skipped rows.
func (s *QuerySource[T]) Lookup(key cursor.Key) (value T, found bool, err error) {
	if err := s.loadKeys(); err != nil {
		return value, false, err
	}
	at, ok := s.positions[cursor.NormalizeKey(key)]
	if !ok {
		return value, false, nil
	}
	if err := s.execute(); err != nil {
		return value, false, err
	}
	defer s.idle()
	saved := s.handle.CurrentRow()
	defer func() {
		if merr := s.move(saved); merr != nil && err == nil {
			err = merr
		}
	}()
	if err := s.move(at); err != nil {
		return value, false, err
	}
	row, ok, err := s.handle.FetchRow()
	if err != nil || !ok {
		return value, false, errors.Wrap(err, "failed to fetch row")
	}
	return s.transform(row)
}

// ToArray converts every non-skipped row, keyed like the enumeration. The
// enumeration position is not affected.
func (s *QuerySource[T]) ToArray() ([]cursor.Entry[T], error) {
	var entries []cursor.Entry[T]
	err := s.scan(func(index int, row cursor.Row) (bool, error) {
		v, keep, err := s.transform(row)
		if err != nil {
			return false, err
		}
		if keep {
			entries = append(entries, cursor.Entry[T]{Key: rowKey(row, index), Value: v})
		}
		return true, nil
	})
	return entries, err
}

// ToTSV writes every converted row to a tab separated file and returns its
// name. An empty filename writes to a new temporary file.
func (s *QuerySource[T]) ToTSV(filename string) (string, error) {
	return s.export(filename, ".tsv", tsvcodec.New())
}

// ToCSV writes every converted row to a comma separated file and returns
// its name. An empty filename writes to a new temporary file.
func (s *QuerySource[T]) ToCSV(filename string) (string, error) {
	return s.export(filename, ".csv", csvcodec.New())
}

func (s *QuerySource[T]) export(filename, ext string, codec cursor.Codec) (string, error) {
	if filename == "" {
		filename = cursor.TempPath(ext)
	}
	rows := &queryRows[T]{src: s}
	defer rows.finish()
	if err := cursor.NewExporter(rows, codec).WriteFile(filename); err != nil {
		return filename, err
	}
	s.conf.log.Debug().Str("file", filename).Int("rows", rows.n).Msg("exported query")
	return filename, rows.finish()
}

// Set always fails: query sources are read-only.
func (s *QuerySource[T]) Set(cursor.Key, T) error {
	return cursor.UnsupportedOperation("QuerySource", "set")
}

// Unset always fails: query sources are read-only.
func (s *QuerySource[T]) Unset(cursor.Key) error {
	return cursor.UnsupportedOperation("QuerySource", "unset")
}

// Property returns a named property: sql, query, params, count or total.
func (s *QuerySource[T]) Property(name string) (any, error) {
	switch name {
	case "sql", "query":
		return s.Query(), nil
	case "params":
		return s.Params(), nil
	case "count", "total":
		return s.Count()
	}
	return nil, cursor.InvalidProperty("QuerySource", name)
}

// queryRows streams the converted rows of a query source from its first
// row, leaving the enumeration position untouched.
type queryRows[T any] struct {
	src     *QuerySource[T]
	started bool
	done    bool
	saved   int
	row     cursor.Row
	n       int
	err     error
}

func (r *queryRows[T]) Next() bool {
	if r.err != nil || r.done {
		return false
	}
	s := r.src
	if !r.started {
		r.started = true
		if r.err = s.execute(); r.err != nil {
			return false
		}
		r.saved = s.handle.CurrentRow()
		if err := s.handle.MoveFirst(); err != nil {
			r.err = errors.Wrap(err, "failed to move to first row")
			return false
		}
	}
	for {
		row, ok, err := s.handle.FetchRow()
		if err != nil {
			r.err = errors.Wrap(err, "failed to fetch row")
			return false
		}
		if !ok {
			r.done = true
			return false
		}
		v, keep, err := s.transform(row)
		if err != nil {
			r.err = err
			return false
		}
		if !keep {
			continue
		}
		if r.row, r.err = cursor.AsRow(v); r.err != nil {
			return false
		}
		r.n++
		return true
	}
}

func (r *queryRows[T]) ScanRow() (cursor.Row, error) {
	return r.row, nil
}

func (r *queryRows[T]) Err() error {
	return r.err
}

// finish restores the handle position once.
func (r *queryRows[T]) finish() error {
	if !r.started || r.src.handle == nil {
		return nil
	}
	r.started = false
	defer r.src.idle()
	return r.src.move(r.saved)
}
