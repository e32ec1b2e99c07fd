package source

import (
	"slices"

	"github.com/go-data-exporter/cursor"
)

// ArraySource enumerates a fixed in-memory sequence, converting each element
// with a transform when it is read. It holds no external resource.
//
// Logical positions are element positions: Count reports every element and
// Start seeks by index in O(1), whether or not the transform skips some of
// them.
type ArraySource[E, T any] struct {
	stepper[T]

	keys      []cursor.Key
	values    []E
	index     map[cursor.Key]int
	transform cursor.Transform[E, T]
	start     int
	next      int
	conf      config
}

// NewArraySource wraps values, keyed by position. A nil transform returns
// the elements unchanged and requires E to be assignable to T.
func NewArraySource[E, T any](values []E, transform cursor.Transform[E, T], opts ...Option) (*ArraySource[E, T], error) {
	return NewKeyedArraySource(nil, values, transform, opts...)
}

// NewKeyedArraySource wraps values with explicit keys. keys may be nil for
// positional keys; otherwise it must be as long as values and hold no
// duplicates.
func NewKeyedArraySource[E, T any](keys []cursor.Key, values []E, transform cursor.Transform[E, T], opts ...Option) (*ArraySource[E, T], error) {
	if keys != nil && len(keys) != len(values) {
		return nil, cursor.MalformedInput("%d keys for %d values", len(keys), len(values))
	}
	if transform == nil {
		var err error
		if transform, err = identity[E, T](); err != nil {
			return nil, err
		}
	}
	s := &ArraySource[E, T]{
		values:    slices.Clone(values),
		transform: transform,
		conf:      newConfig("array", opts),
	}
	if keys != nil {
		s.keys = make([]cursor.Key, len(keys))
		s.index = make(map[cursor.Key]int, len(keys))
		for i, k := range keys {
			k = cursor.NormalizeKey(k)
			if _, dup := s.index[k]; dup {
				return nil, cursor.MalformedInput("duplicate key %v", k)
			}
			s.keys[i] = k
			s.index[k] = i
		}
	}
	s.advance = s.fetch
	return s, nil
}

// FromSlice wraps values with the identity transform.
func FromSlice[T any](values []T, opts ...Option) *ArraySource[T, T] {
	s, _ := NewArraySource(values, cursor.Identity[T](), opts...)
	return s
}

func (s *ArraySource[E, T]) keyAt(i int) cursor.Key {
	if s.keys != nil {
		return s.keys[i]
	}
	return i
}

func (s *ArraySource[E, T]) fetch() error {
	for s.next < len(s.values) {
		i := s.next
		s.next++
		v, keep, err := s.transform(s.values[i])
		if err != nil {
			return err
		}
		if keep {
			s.pos.set(s.keyAt(i), v)
			return nil
		}
	}
	s.pos.exhaust()
	return nil
}

func (s *ArraySource[E, T]) Rewind() error {
	s.reset()
	s.next = s.start
	return nil
}

func (s *ArraySource[E, T]) Start(offset int) error {
	s.start = min(max(offset, 0), len(s.values))
	return s.Rewind()
}

func (s *ArraySource[E, T]) Count() (int, error) {
	return len(s.values), nil
}

func (s *ArraySource[E, T]) Close() error {
	return nil
}

// Keys returns every key, including those of elements the transform skips.
func (s *ArraySource[E, T]) Keys() []cursor.Key {
	keys := make([]cursor.Key, len(s.values))
	for i := range s.values {
		keys[i] = s.keyAt(i)
	}
	return keys
}

func (s *ArraySource[E, T]) find(key cursor.Key) (int, bool) {
	key = cursor.NormalizeKey(key)
	if s.index != nil {
		i, ok := s.index[key]
		return i, ok
	}
	i, ok := key.(int)
	return i, ok && i >= 0 && i < len(s.values)
}

// Has reports whether key is one of the source's keys.
func (s *ArraySource[E, T]) Has(key cursor.Key) bool {
	_, ok := s.find(key)
	return ok
}

// Lookup converts the element at key. It reports false for unknown keys
// and skipped elements. The enumeration position is not affected.
func (s *ArraySource[E, T]) Lookup(key cursor.Key) (T, bool, error) {
	var zero T
	i, ok := s.find(key)
	if !ok {
		return zero, false, nil
	}
	return s.transform(s.values[i])
}

// ToArray returns the converted, non-skipped elements keyed by their
// original keys. The enumeration position is not affected.
func (s *ArraySource[E, T]) ToArray() ([]cursor.Entry[T], error) {
	entries := make([]cursor.Entry[T], 0, len(s.values))
	for i, e := range s.values {
		v, keep, err := s.transform(e)
		if err != nil {
			return nil, err
		}
		if keep {
			entries = append(entries, cursor.Entry[T]{Key: s.keyAt(i), Value: v})
		}
	}
	return entries, nil
}

// Raw returns the elements without conversion.
func (s *ArraySource[E, T]) Raw() []cursor.Entry[E] {
	entries := make([]cursor.Entry[E], len(s.values))
	for i, e := range s.values {
		entries[i] = cursor.Entry[E]{Key: s.keyAt(i), Value: e}
	}
	return entries
}

// Set always fails: array sources are read-only.
func (s *ArraySource[E, T]) Set(cursor.Key, T) error {
	return cursor.UnsupportedOperation("ArraySource", "set")
}

// Unset always fails: array sources are read-only.
func (s *ArraySource[E, T]) Unset(cursor.Key) error {
	return cursor.UnsupportedOperation("ArraySource", "unset")
}

// Property returns a named property: count, total, array or rows.
func (s *ArraySource[E, T]) Property(name string) (any, error) {
	switch name {
	case "count", "total":
		return s.Count()
	case "array", "rows":
		return s.Raw(), nil
	}
	return nil, cursor.InvalidProperty("ArraySource", name)
}
