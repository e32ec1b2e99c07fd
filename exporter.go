package cursor

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Rows is the forward-only row stream codecs consume.
type Rows interface {
	// Next prepares the next row, returning false at the end or on error.
	Next() bool
	// ScanRow returns the row prepared by Next.
	ScanRow() (Row, error)
	// Err returns the error that stopped Next.
	Err() error
}

// Codec writes a row stream in some file format.
type Codec interface {
	Write(rows Rows, writer io.Writer) error
}

type cursorRows[T any] struct {
	c       Cursor[T]
	started bool
	current T
	err     error
}

// RowsOf streams c from its logical start. Values must be rows (see AsRow).
func RowsOf[T any](c Cursor[T]) Rows {
	return &cursorRows[T]{c: c}
}

func (r *cursorRows[T]) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.started {
		r.started = true
		if err := r.c.Rewind(); err != nil {
			r.err = err
			return false
		}
	}
	res, err := r.c.Next()
	if err != nil {
		r.err = err
		return false
	}
	r.current = res.Value()
	return !res.Exhausted()
}

func (r *cursorRows[T]) ScanRow() (Row, error) {
	return AsRow(r.current)
}

func (r *cursorRows[T]) Err() error {
	return r.err
}

type sliceRows struct {
	rows []Row
	next int
}

// FromRows streams rows held in memory.
func FromRows(rows ...Row) Rows {
	return &sliceRows{rows: rows}
}

func (s *sliceRows) Next() bool {
	if s.next >= len(s.rows) {
		return false
	}
	s.next++
	return true
}

func (s *sliceRows) ScanRow() (Row, error) {
	if s.next == 0 {
		return Row{}, errors.New("scan called without calling Next")
	}
	return s.rows[s.next-1], nil
}

func (s *sliceRows) Err() error {
	return nil
}

// Exporter writes a row stream through a codec.
type Exporter struct {
	rows  Rows
	codec Codec
}

func NewExporter(rows Rows, codec Codec) *Exporter {
	return &Exporter{
		rows:  rows,
		codec: codec,
	}
}

func (e *Exporter) Write(writer io.Writer) error {
	return e.codec.Write(e.rows, writer)
}

// WriteFile writes the export to filename, creating or truncating it. The
// file is closed on every path.
func (e *Exporter) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return IOError(err, "create %s", filename)
	}
	defer f.Close()
	if err := e.Write(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return IOError(err, "close %s", filename)
	}
	return nil
}

// TempPath returns a fresh file name in the system temporary directory.
func TempPath(ext string) string {
	return filepath.Join(os.TempDir(), "cursor-"+uuid.NewString()+ext)
}
