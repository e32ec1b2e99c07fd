package jsoncodec

import (
	"io"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/go-data-exporter/cursor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata describes the value handed to a custom type mapper.
type Metadata struct {
	RowID  int
	Column string
}

type Option func(*jsonCodec)

type jsonCodec struct {
	customMapper     map[reflect.Type]func(any, Metadata) any
	preProcessorFunc func(rowID int, row cursor.Row) (cursor.Row, bool)
	newlineDelimited bool
	limit            int
}

func New(opts ...Option) *jsonCodec {
	c := &jsonCodec{
		customMapper: make(map[reflect.Type]func(any, Metadata) any),
		limit:        -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithPreProcessorFunc(fn func(rowID int, row cursor.Row) (cursor.Row, bool)) Option {
	return func(c *jsonCodec) {
		c.preProcessorFunc = fn
	}
}

func WithNewlineDelimited(isNewlineDelimited bool) Option {
	return func(c *jsonCodec) {
		c.newlineDelimited = isNewlineDelimited
	}
}

func WithCustomType[T any](fn func(v T, metadata Metadata) any) Option {
	return func(c *jsonCodec) {
		var zero T
		typ := reflect.TypeOf(zero)
		if c.customMapper == nil {
			c.customMapper = make(map[reflect.Type]func(any, Metadata) any)
		}
		c.customMapper[typ] = func(v any, metadata Metadata) any {
			return fn(v.(T), metadata)
		}
	}
}

func WithLimit(limit int) Option {
	return func(c *jsonCodec) {
		c.limit = limit
	}
}

// Write emits one JSON object per row with keys in column order, either as
// an array or newline delimited.
func (c *jsonCodec) Write(rows cursor.Rows, writer io.Writer) error {
	stream := json.BorrowStream(writer)
	defer json.ReturnStream(stream)

	written := 0
	rowID := 0
	for c.limit < 0 || written < c.limit {
		if !rows.Next() {
			break
		}
		row, err := rows.ScanRow()
		if err != nil {
			return err
		}
		rowID++
		if c.preProcessorFunc != nil {
			var writeRow bool
			if row, writeRow = c.preProcessorFunc(rowID, row); !writeRow {
				continue
			}
		}

		switch {
		case c.newlineDelimited:
		case written == 0:
			stream.WriteRaw("[\n")
		default:
			stream.WriteRaw(",\n")
		}
		c.writeRow(stream, rowID, row)
		if c.newlineDelimited {
			stream.WriteRaw("\n")
		}
		written++
		if err := stream.Flush(); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	switch {
	case c.newlineDelimited:
	case written == 0:
		stream.WriteRaw("[]\n")
	default:
		stream.WriteRaw("\n]\n")
	}
	if err := stream.Flush(); err != nil {
		return err
	}
	return stream.Error
}

func (c *jsonCodec) writeRow(stream *jsoniter.Stream, rowID int, row cursor.Row) {
	stream.WriteObjectStart()
	for i, col := range row.Columns() {
		if i > 0 {
			stream.WriteMore()
		}
		v := row.At(i)
		if fn, ok := c.customMapper[reflect.TypeOf(v)]; ok && v != nil {
			v = fn(v, Metadata{RowID: rowID, Column: col})
		}
		stream.WriteObjectField(col)
		stream.WriteVal(v)
	}
	stream.WriteObjectEnd()
}
