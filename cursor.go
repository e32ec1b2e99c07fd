// Package cursor defines lazy, pull-based cursors: a uniform enumeration,
// counting and seeking contract shared by in-memory sequences, query result
// sets, delimited text files and concatenations of other cursors.
//
// Implementations live in the source package. Export codecs consume cursors
// through the Rows stream returned by RowsOf.
package cursor

// Key identifies the current position of a cursor. Query and text sources
// use an integer position or the row "id" field; keyed array sources use
// whatever keys they were built with.
type Key = any

// Cursor is the capability set every source implements.
//
// A freshly constructed or rewound cursor is positioned before its first
// element. Current, Key and Valid fetch the first element on demand; Next
// advances and returns the new element. Once Next reports an exhausted
// result it keeps doing so until Rewind.
type Cursor[T any] interface {
	// Current returns the element at the current position.
	Current() (Result[T], error)
	// Key returns the key of the current position, nil when exhausted.
	Key() Key
	// Next advances to the following element and returns it.
	Next() (Result[T], error)
	// Rewind resets the cursor to its logical start, reopening the
	// backing resource if needed.
	Rewind() error
	// Valid reports whether the last fetch produced a value.
	Valid() bool
	// Start repositions the cursor to the 0-based logical offset. The
	// offset becomes the logical start used by later calls to Rewind.
	Start(offset int) error
	// Count returns the total element count. It is computed once.
	Count() (int, error)
	// Err returns the error, if any, raised by a fetch that had no other
	// way to report it (Valid, Key).
	Err() error
	// Close releases the backing resource. The cursor can be rewound and
	// used again afterwards.
	Close() error
}

// Result is the outcome of a fetch: either a keyed value or the exhausted
// marker. A zero, empty or false value is still a value.
type Result[T any] struct {
	key   Key
	value T
	ok    bool
}

// Found returns a result holding value at key.
func Found[T any](key Key, value T) Result[T] {
	return Result[T]{key: key, value: value, ok: true}
}

// Exhausted returns the end-of-sequence result.
func Exhausted[T any]() Result[T] {
	return Result[T]{}
}

// Value returns the fetched value, the zero value when exhausted.
func (r Result[T]) Value() T {
	return r.value
}

// Key returns the key the value was fetched at.
func (r Result[T]) Key() Key {
	return r.key
}

// Exhausted reports whether the cursor had no more elements.
func (r Result[T]) Exhausted() bool {
	return !r.ok
}

// Get returns the value and whether there was one.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// Entry is a materialized (key, value) pair.
type Entry[T any] struct {
	Key   Key
	Value T
}

// ForEach rewinds c and calls fn for every element until the cursor is
// exhausted or fn returns false.
func ForEach[T any](c Cursor[T], fn func(key Key, value T) (bool, error)) error {
	if err := c.Rewind(); err != nil {
		return err
	}
	for {
		r, err := c.Next()
		if err != nil {
			return err
		}
		if r.Exhausted() {
			return nil
		}
		more, err := fn(r.Key(), r.Value())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Collect rewinds c and materializes every element in order.
func Collect[T any](c Cursor[T]) ([]Entry[T], error) {
	var entries []Entry[T]
	err := ForEach(c, func(key Key, value T) (bool, error) {
		entries = append(entries, Entry[T]{Key: key, Value: value})
		return true, nil
	})
	return entries, err
}

// Take rewinds c and returns up to n elements.
func Take[T any](c Cursor[T], n int) ([]Entry[T], error) {
	entries := make([]Entry[T], 0, max(n, 0))
	if n <= 0 {
		return entries, nil
	}
	err := ForEach(c, func(key Key, value T) (bool, error) {
		entries = append(entries, Entry[T]{Key: key, Value: value})
		return len(entries) < n, nil
	})
	return entries, err
}
