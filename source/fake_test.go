package source

import (
	"context"
	"slices"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// fakeExecutor answers queries from canned results and records what ran.
type fakeExecutor struct {
	results  map[string][]cursor.Row
	counts   map[string]any
	fail     error
	executed []string
	params   [][]any
	probed   []string
	handles  []*fakeHandle
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(map[string][]cursor.Row),
		counts:  make(map[string]any),
	}
}

func (f *fakeExecutor) Execute(_ context.Context, query string, params []any) (ResultHandle, error) {
	f.executed = append(f.executed, query)
	f.params = append(f.params, slices.Clone(params))
	if f.fail != nil {
		return nil, f.fail
	}
	rows, ok := f.results[query]
	if !ok {
		return nil, errors.Errorf("unexpected query %q", query)
	}
	h := &fakeHandle{rows: rows}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeExecutor) GetOne(_ context.Context, query string, _ []any) (any, error) {
	f.probed = append(f.probed, query)
	if f.fail != nil {
		return nil, f.fail
	}
	v, ok := f.counts[query]
	if !ok {
		return nil, errors.Errorf("unexpected count query %q", query)
	}
	return v, nil
}

type fakeHandle struct {
	rows   []cursor.Row
	next   int
	closed bool
}

func (h *fakeHandle) Move(n int) error {
	if n < 0 {
		return errors.Errorf("invalid position %d", n)
	}
	h.next = min(n, len(h.rows))
	return nil
}

func (h *fakeHandle) MoveFirst() error {
	return h.Move(0)
}

func (h *fakeHandle) FetchRow() (cursor.Row, bool, error) {
	if h.closed {
		return cursor.Row{}, false, errors.New("fetch on closed handle")
	}
	if h.next >= len(h.rows) {
		return cursor.Row{}, false, nil
	}
	h.next++
	return h.rows[h.next-1], true, nil
}

func (h *fakeHandle) RecordCount() int {
	return len(h.rows)
}

func (h *fakeHandle) CurrentRow() int {
	return h.next
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// keysOf enumerates c from its logical start and returns the keys.
func keysOf[T any](c cursor.Cursor[T]) ([]cursor.Key, error) {
	entries, err := cursor.Collect(c)
	if err != nil {
		return nil, err
	}
	keys := make([]cursor.Key, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}
