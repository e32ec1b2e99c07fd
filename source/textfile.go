package source

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// TextFileSource streams the records of a delimited text file. Only the
// current record is held in memory.
//
// Keys are record positions in the file: with a header row the header is
// key 0 and the first data record key 1. Each row handed to the transform
// carries its 1-based starting line under cursor.LineField.
type TextFileSource[T any] struct {
	stepper[T]

	path      string
	transform cursor.Transform[cursor.Row, T]
	conf      config

	in      *input
	reader  *recordReader
	header  []string
	start   int
	index   int
	line    int
	count   int
	counted bool
}

// NewTextFileSource prepares a cursor over the file at path. The file is not
// opened until first accessed. A nil transform yields cursor.Row values.
func NewTextFileSource[T any](path string, transform cursor.Transform[cursor.Row, T], opts ...Option) (*TextFileSource[T], error) {
	conf := newConfig("textfile", opts)
	switch {
	case path == "":
		return nil, errors.New("text file path is required")
	case conf.delimiter == conf.enclosure:
		return nil, errors.Errorf("delimiter and enclosure must differ: %q", conf.delimiter)
	case !validSeparator(conf.delimiter) || !validSeparator(conf.enclosure):
		return nil, errors.Errorf("invalid delimiter %q or enclosure %q", conf.delimiter, conf.enclosure)
	case conf.fields < 0:
		return nil, errors.Errorf("invalid field count %d", conf.fields)
	}
	if transform == nil {
		var err error
		if transform, err = identity[cursor.Row, T](); err != nil {
			return nil, err
		}
	}
	s := &TextFileSource[T]{
		path:      path,
		transform: transform,
		conf:      conf,
	}
	s.conf.log = s.conf.log.With().Str("path", path).Logger()
	s.advance = s.fetch
	return s, nil
}

func validSeparator(r rune) bool {
	return r != 0 && r != '\r' && r != '\n' && r != utf8.RuneError
}

// Path returns the file the source reads.
func (s *TextFileSource[T]) Path() string {
	return s.path
}

// Line returns the 1-based line the current record starts on, 0 when there
// is no current record.
func (s *TextFileSource[T]) Line() int {
	if !s.Valid() {
		return 0
	}
	return s.line
}

// Header returns the fields of the header row, nil without one.
func (s *TextFileSource[T]) Header() ([]string, error) {
	if !s.conf.headerRow || s.header != nil {
		return s.header, nil
	}
	in, err := openInput(s.path, s.conf.compression, s.conf.encoding)
	if err != nil {
		return nil, cursor.IOError(err, "unable to open %s for reading", s.path)
	}
	defer release(s.conf.log, "text file header handle", in)
	rec, _, err := newRecordReader(in, s.conf.delimiter, s.conf.enclosure).read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, s.readError(err)
	}
	s.header = s.trimmed(rec)
	return s.header, nil
}

// open (re)opens the file and skips the header and the start offset.
func (s *TextFileSource[T]) open() error {
	s.closeInput()
	in, err := openInput(s.path, s.conf.compression, s.conf.encoding)
	if err != nil {
		return cursor.IOError(err, "unable to open %s for reading", s.path)
	}
	s.in = in
	s.reader = newRecordReader(in, s.conf.delimiter, s.conf.enclosure)
	s.index = 0
	s.header = nil
	s.conf.log.Debug().Int("start", s.start).Msg("opened text file")

	skip := s.start
	if s.conf.headerRow {
		skip++
	}
	for s.index < skip {
		rec, _, err := s.reader.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.abandon(s.readError(err))
		}
		if s.index == 0 && s.conf.headerRow {
			s.header = s.trimmed(rec)
		}
		s.index++
	}
	return nil
}

func (s *TextFileSource[T]) fetch() error {
	if s.reader == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	for {
		rec, line, err := s.reader.read()
		if err == io.EOF {
			s.closeInput()
			s.pos.exhaust()
			return nil
		}
		if err != nil {
			return s.abandon(s.readError(err))
		}
		key := s.index
		s.index++
		if s.conf.fields > 0 && len(rec) != s.conf.fields {
			return s.abandon(cursor.MalformedInput("line %d of %s has %d fields, expected %d", line, s.path, len(rec), s.conf.fields))
		}
		v, keep, err := s.transform(s.row(rec, line))
		if err != nil {
			return s.abandon(err)
		}
		if keep {
			s.line = line
			s.pos.set(key, v)
			return nil
		}
	}
}

func (s *TextFileSource[T]) trimmed(rec []string) []string {
	if !s.conf.trim {
		return rec
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec
}

func (s *TextFileSource[T]) row(rec []string, line int) cursor.Row {
	rec = s.trimmed(rec)
	columns := make([]string, len(rec), len(rec)+1)
	values := make([]any, len(rec), len(rec)+1)
	for i, f := range rec {
		if i < len(s.header) && s.header[i] != "" {
			columns[i] = s.header[i]
		} else {
			columns[i] = fmt.Sprintf("column_%d", i)
		}
		values[i] = f
	}
	return cursor.NewRow(append(columns, cursor.LineField), append(values, line))
}

// abandon releases the file after a failure and returns the failure.
func (s *TextFileSource[T]) abandon(err error) error {
	s.closeInput()
	return err
}

// readError classifies a failure of the record reader.
func (s *TextFileSource[T]) readError(err error) error {
	var ce *cursor.Error
	if errors.As(err, &ce) {
		return err
	}
	return cursor.IOError(err, "unable to read %s", s.path)
}

func (s *TextFileSource[T]) closeInput() {
	if s.in != nil {
		release(s.conf.log, "text file", s.in)
		s.conf.log.Debug().Msg("closed text file")
	}
	s.in, s.reader = nil, nil
}

// Rewind reopens the file at the logical start.
func (s *TextFileSource[T]) Rewind() error {
	s.reset()
	if err := s.open(); err != nil {
		s.err = err
		return err
	}
	return nil
}

// Start records offset. It is applied by skipping records the next time the
// file is opened, since a text file cannot seek to a record boundary.
func (s *TextFileSource[T]) Start(offset int) error {
	s.start = max(offset, 0)
	s.closeInput()
	s.reset()
	return nil
}

// Count scans the file through a separate handle once and counts its
// non-header records.
func (s *TextFileSource[T]) Count() (int, error) {
	if s.counted {
		return s.count, nil
	}
	in, err := openInput(s.path, s.conf.compression, s.conf.encoding)
	if err != nil {
		return 0, cursor.IOError(err, "unable to open %s for reading", s.path)
	}
	defer release(s.conf.log, "text file count handle", in)

	rr := newRecordReader(in, s.conf.delimiter, s.conf.enclosure)
	n := 0
	for {
		_, _, err := rr.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, s.readError(err)
		}
		n++
	}
	if s.conf.headerRow && n > 0 {
		n--
	}
	s.count, s.counted = n, true
	return n, nil
}

// Close releases the file. The source stays exhausted until rewound.
func (s *TextFileSource[T]) Close() error {
	s.closeInput()
	s.finish()
	return nil
}
