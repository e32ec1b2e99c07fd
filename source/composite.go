package source

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// CompositeSource concatenates child cursors into one logical sequence.
// Keys are the children's keys. Children keep ownership of their resources;
// closing the composite closes them.
type CompositeSource[T any] struct {
	stepper[T]

	children []cursor.Cursor[T]
	conf     config

	current int
	start   int
	count   int
	counted bool
}

// NewCompositeSource concatenates children in order.
func NewCompositeSource[T any](children []cursor.Cursor[T], opts ...Option) (*CompositeSource[T], error) {
	for i, c := range children {
		if c == nil {
			return nil, errors.Errorf("child %d is nil", i)
		}
	}
	s := &CompositeSource[T]{
		children: slices.Clone(children),
		conf:     newConfig("composite", opts),
		current:  -1,
	}
	s.advance = s.fetch
	return s, nil
}

// Concat is NewCompositeSource for a fixed list of children.
func Concat[T any](children ...cursor.Cursor[T]) (*CompositeSource[T], error) {
	return NewCompositeSource(children)
}

// Children returns the child cursors.
func (s *CompositeSource[T]) Children() []cursor.Cursor[T] {
	return slices.Clone(s.children)
}

// NumSources returns the number of children.
func (s *CompositeSource[T]) NumSources() int {
	return len(s.children)
}

// position finds the child owning the logical start and positions it.
// Children before it are counted but never enumerated.
func (s *CompositeSource[T]) position() error {
	offset := s.start
	for i, c := range s.children {
		n, err := c.Count()
		if err != nil {
			return err
		}
		if offset >= n && i < len(s.children)-1 {
			offset -= n
			continue
		}
		s.current = i
		s.conf.log.Debug().Int("child", i).Int("offset", offset).Msg("positioned composite")
		return c.Start(offset)
	}
	s.current = len(s.children)
	return nil
}

func (s *CompositeSource[T]) fetch() error {
	if s.current < 0 {
		if err := s.position(); err != nil {
			return err
		}
	}
	for s.current < len(s.children) {
		r, err := s.children[s.current].Next()
		if err != nil {
			return err
		}
		if v, ok := r.Get(); ok {
			s.pos.set(r.Key(), v)
			return nil
		}
		s.current++
		if s.current < len(s.children) {
			if err := s.children[s.current].Start(0); err != nil {
				return err
			}
		}
	}
	s.pos.exhaust()
	return nil
}

// Rewind returns to the logical start. The owning child is positioned on
// the next fetch.
func (s *CompositeSource[T]) Rewind() error {
	s.reset()
	s.current = -1
	return nil
}

// Start records offset as the logical start and rewinds to it.
func (s *CompositeSource[T]) Start(offset int) error {
	s.start = max(offset, 0)
	return s.Rewind()
}

// Count returns the sum of the children's counts.
func (s *CompositeSource[T]) Count() (int, error) {
	if s.counted {
		return s.count, nil
	}
	total := 0
	for i, c := range s.children {
		n, err := c.Count()
		if err != nil {
			return 0, errors.Wrapf(err, "failed to count child %d", i)
		}
		total += n
	}
	s.count, s.counted = total, true
	return total, nil
}

// Close closes every child. The first failure is returned and the others
// are logged.
func (s *CompositeSource[T]) Close() error {
	s.finish()
	s.current = -1
	var first error
	for i, c := range s.children {
		if err := c.Close(); err != nil {
			if first == nil {
				first = err
				continue
			}
			s.conf.log.Warn().Err(err).Int("child", i).Msg("failed to close child")
		}
	}
	return first
}

// Property returns a named property: count, total or sources.
func (s *CompositeSource[T]) Property(name string) (any, error) {
	switch name {
	case "count", "total":
		return s.Count()
	case "sources":
		return s.NumSources(), nil
	}
	return nil, cursor.InvalidProperty("CompositeSource", name)
}
