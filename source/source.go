// Package source implements cursor.Cursor over an in-memory sequence, a
// delimited text file, a query result set and a concatenation of other
// cursors, plus page windows over queries.
//
// Sources are single-threaded: an instance must not be used from more than
// one goroutine at a time. Instances share no state with each other.
package source

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"

	"github.com/go-data-exporter/cursor"
)

// Option configures a source. Options that do not apply to a source are
// ignored by it.
type Option func(*config)

type config struct {
	log       zerolog.Logger
	ctx       context.Context
	transform any

	headerRow   bool
	delimiter   rune
	enclosure   rune
	trim        bool
	fields      int
	encoding    encoding.Encoding
	compression Compression
}

func newConfig(kind string, opts []Option) config {
	c := config{
		log:         zerolog.Nop(),
		ctx:         context.Background(),
		delimiter:   ',',
		enclosure:   '"',
		trim:        true,
		compression: CompressionAuto,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.log = c.log.With().Str("source", kind).Logger()
	return c
}

// WithLogger sets the logger of the source. Sources log nothing by default.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithContext sets the context passed to the execution collaborator.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithTransform overrides the per-row transform of a paged view. The output
// type must match the view's element type.
func WithTransform[T any](t cursor.Transform[cursor.Row, T]) Option {
	return func(c *config) {
		c.transform = t
	}
}

// identity returns the identity transform from E to T, failing when E
// values cannot be used as T.
func identity[E, T any]() (cursor.Transform[E, T], error) {
	from, to := reflect.TypeOf((*E)(nil)).Elem(), reflect.TypeOf((*T)(nil)).Elem()
	if !from.AssignableTo(to) {
		return nil, errors.Errorf("a transform is required to convert %s to %s", from, to)
	}
	return func(in E) (T, bool, error) {
		out, _ := any(in).(T)
		return out, true, nil
	}, nil
}

// position is the (key, value) state of a cursor. value is the transformed
// element, computed when the position is fetched and kept until the cursor
// advances.
type position[T any] struct {
	key     cursor.Key
	value   T
	fetched bool
	valid   bool
}

func (p *position[T]) set(key cursor.Key, value T) {
	p.key, p.value = key, value
	p.fetched, p.valid = true, true
}

func (p *position[T]) exhaust() {
	var zero T
	p.key, p.value = nil, zero
	p.fetched, p.valid = true, false
}

func (p position[T]) result() cursor.Result[T] {
	if !p.valid {
		return cursor.Exhausted[T]()
	}
	return cursor.Found(p.key, p.value)
}

// stepper implements the shared half of the cursor contract on top of an
// advance function that fetches the next kept element into pos.
type stepper[T any] struct {
	pos     position[T]
	err     error
	advance func() error
}

func (s *stepper[T]) step() error {
	if err := s.advance(); err != nil {
		s.err = err
		s.pos.exhaust()
		return err
	}
	return nil
}

func (s *stepper[T]) Current() (cursor.Result[T], error) {
	if s.err != nil {
		return cursor.Exhausted[T](), s.err
	}
	if !s.pos.fetched {
		if err := s.step(); err != nil {
			return cursor.Exhausted[T](), err
		}
	}
	return s.pos.result(), nil
}

func (s *stepper[T]) Next() (cursor.Result[T], error) {
	if s.err != nil {
		return cursor.Exhausted[T](), s.err
	}
	if s.pos.fetched && !s.pos.valid {
		return cursor.Exhausted[T](), nil
	}
	if err := s.step(); err != nil {
		return cursor.Exhausted[T](), err
	}
	return s.pos.result(), nil
}

func (s *stepper[T]) Key() cursor.Key {
	if !s.pos.fetched && s.err == nil {
		s.step()
	}
	return s.pos.key
}

func (s *stepper[T]) Valid() bool {
	if !s.pos.fetched && s.err == nil {
		s.step()
	}
	return s.pos.valid
}

func (s *stepper[T]) Err() error {
	return s.err
}

func (s *stepper[T]) reset() {
	s.pos = position[T]{}
	s.err = nil
}

// finish leaves the cursor exhausted until the next Rewind.
func (s *stepper[T]) finish() {
	s.pos.exhaust()
	s.err = nil
}

// release closes c, logging a failure instead of returning it so an
// originating error is never masked.
func release(l zerolog.Logger, what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		l.Warn().Err(err).Msgf("failed to release %s", what)
	}
}
