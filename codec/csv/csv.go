package csvcodec

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"slices"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/tostring"
)

type csvCodec struct {
	customMapper     map[reflect.Type]func(any, string) string
	preProcessorFunc func(row []string) ([]string, bool)
	delimiter        rune
	useCRLF          bool
	writeHeader      bool
	customHeader     []string
	nullValue        string
}

type Option func(*csvCodec)

func New(opts ...Option) *csvCodec {
	cw := &csvCodec{
		customMapper: make(map[reflect.Type]func(any, string) string),
		delimiter:    ',',
		useCRLF:      false,
		writeHeader:  true,
	}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// WithCustomType renders values of type T with fn. fn receives the column
// name.
func WithCustomType[T any](fn func(v T, column string) string) Option {
	return func(cw *csvCodec) {
		var zero T
		typ := reflect.TypeOf(zero)
		if cw.customMapper == nil {
			cw.customMapper = make(map[reflect.Type]func(any, string) string)
		}
		cw.customMapper[typ] = func(v any, column string) string {
			return fn(v.(T), column)
		}
	}
}

// Write emits a header built from the first row's columns, then one record
// per row. Every row must carry the same columns as the first one.
func (cs *csvCodec) Write(rows cursor.Rows, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	if cs.delimiter != 0 {
		csvWriter.Comma = cs.delimiter
	}
	csvWriter.UseCRLF = cs.useCRLF
	defer csvWriter.Flush()

	var columns []string
	rowID := 0
	first := true
	for rows.Next() {
		row, err := rows.ScanRow()
		if err != nil {
			return err
		}
		rowID++
		if first {
			first = false
			columns = row.Columns()
			if err := cs.header(csvWriter, columns); err != nil {
				return err
			}
		} else if !slices.Equal(columns, row.Columns()) {
			return cursor.MalformedInput("columns of row %d != columns of the first row: %v != %v", rowID, row.Columns(), columns)
		}
		record := make([]string, row.Len())
		for i, col := range columns {
			record[i] = cs.toString(row.At(i), col)
		}
		writeRow := true
		if cs.preProcessorFunc != nil {
			record, writeRow = cs.preProcessorFunc(record)
		}
		if writeRow {
			if err := csvWriter.Write(record); err != nil {
				return errors.Wrap(err, "failed to write record")
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func (cs *csvCodec) header(w *csv.Writer, columns []string) error {
	if !cs.writeHeader {
		return nil
	}
	header := columns
	if cs.customHeader != nil {
		if len(cs.customHeader) != len(columns) {
			return errors.New("invalid header length")
		}
		header = cs.customHeader
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

func (cs *csvCodec) toString(v any, column string) string {
	if v != nil {
		if fn, ok := cs.customMapper[reflect.TypeOf(v)]; ok {
			return fn(v, column)
		}
	}
	s := tostring.ToString(v)
	if s.IsNULL {
		return cs.nullValue
	}
	return s.String
}

func WithPreProcessorFunc(fn func(row []string) ([]string, bool)) Option {
	return func(cw *csvCodec) {
		cw.preProcessorFunc = fn
	}
}

func WithCustomDelimiter(delimiter rune) Option {
	return func(cw *csvCodec) {
		cw.delimiter = delimiter
	}
}

func WithCRLF(useCRLF bool) Option {
	return func(cw *csvCodec) {
		cw.useCRLF = useCRLF
	}
}

func WithHeader(writeHeader bool) Option {
	return func(cw *csvCodec) {
		cw.writeHeader = writeHeader
	}
}

func WithCustomHeader(customHeader []string) Option {
	return func(cw *csvCodec) {
		cw.customHeader = customHeader
	}
}

func WithCustomNULL(nullValue string) Option {
	return func(cw *csvCodec) {
		cw.nullValue = nullValue
	}
}
