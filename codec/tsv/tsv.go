// Package tsvcodec writes tab separated exports. Embedded line feeds are
// escaped as a literal \n and carriage returns are dropped so every record
// stays on one line.
package tsvcodec

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/tostring"
)

var sanitizer = strings.NewReplacer("\n", `\n`, "\r", "")

type tsvCodec struct {
	writeHeader bool
	lineEnding  string
	nullValue   string
}

type Option func(*tsvCodec)

func New(opts ...Option) *tsvCodec {
	c := &tsvCodec{
		writeHeader: true,
		lineEnding:  "\r\n",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHeader toggles the header line of column names.
func WithHeader(writeHeader bool) Option {
	return func(c *tsvCodec) {
		c.writeHeader = writeHeader
	}
}

// WithLF ends records with "\n" instead of "\r\n".
func WithLF() Option {
	return func(c *tsvCodec) {
		c.lineEnding = "\n"
	}
}

func WithCustomNULL(nullValue string) Option {
	return func(c *tsvCodec) {
		c.nullValue = nullValue
	}
}

func (c *tsvCodec) Write(rows cursor.Rows, writer io.Writer) error {
	w := bufio.NewWriter(writer)
	first := true
	for rows.Next() {
		row, err := rows.ScanRow()
		if err != nil {
			return err
		}
		if first && c.writeHeader {
			if err := c.line(w, row.Columns()); err != nil {
				return err
			}
		}
		first = false
		values := row.Values()
		fields := make([]string, len(values))
		for i, v := range values {
			s := tostring.ToString(v)
			if s.IsNULL {
				fields[i] = c.nullValue
				continue
			}
			fields[i] = s.String
		}
		if err := c.line(w, fields); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "failed to flush tsv output")
}

func (c *tsvCodec) line(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte('\t')
		}
		w.WriteString(sanitizer.Replace(f))
	}
	_, err := w.WriteString(c.lineEnding)
	return errors.Wrap(err, "failed to write tsv line")
}
