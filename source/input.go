package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Compression selects how a text file is decompressed before parsing.
type Compression int

const (
	// CompressionAuto picks a decompressor from the file extension:
	// .gz, .zst or .sz; anything else is read as is.
	CompressionAuto Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZstd
	// CompressionSnappy reads the snappy framing format.
	CompressionSnappy
)

func (c Compression) String() string {
	switch c {
	case CompressionAuto:
		return "auto"
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionSnappy:
		return "snappy"
	}
	return "unknown"
}

func (c Compression) resolve(path string) Compression {
	if c != CompressionAuto {
		return c
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".sz", ".snappy":
		return CompressionSnappy
	}
	return CompressionNone
}

// input is an opened text file with its decoding layers.
type input struct {
	io.Reader
	file  *os.File
	close func()
}

func (in *input) Close() error {
	if in.close != nil {
		in.close()
	}
	return in.file.Close()
}

// openInput opens path and stacks the decompressor and character decoder
// on top of it.
func openInput(path string, c Compression, enc encoding.Encoding) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	in := &input{Reader: f, file: f}
	switch c.resolve(path) {
	case CompressionGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "failed to read gzip header")
		}
		in.Reader, in.close = zr, func() { zr.Close() }
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "failed to create zstd decoder")
		}
		in.Reader, in.close = zr, zr.Close
	case CompressionSnappy:
		in.Reader = snappy.NewReader(f)
	}
	if enc != nil {
		in.Reader = transform.NewReader(in.Reader, enc.NewDecoder())
	}
	return in, nil
}

// WithHeaderRow excludes the first record of a text file from enumeration.
// Its fields name the columns of the following records.
func WithHeaderRow(header bool) Option {
	return func(c *config) {
		c.headerRow = header
	}
}

// WithDelimiter sets the field delimiter of a text file. Default ','.
func WithDelimiter(delimiter rune) Option {
	return func(c *config) {
		c.delimiter = delimiter
	}
}

// WithEnclosure sets the field enclosure of a text file. Default '"'.
func WithEnclosure(enclosure rune) Option {
	return func(c *config) {
		c.enclosure = enclosure
	}
}

// WithTrim toggles trimming of text file fields. Default true.
func WithTrim(trim bool) Option {
	return func(c *config) {
		c.trim = trim
	}
}

// WithFieldCount enforces a fixed number of fields per record. Records of
// another width fail with cursor.ErrMalformedInput.
func WithFieldCount(n int) Option {
	return func(c *config) {
		c.fields = n
	}
}

// WithEncoding decodes a text file from enc, for example
// charmap.ISO8859_1. Default is UTF-8 as is.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *config) {
		c.encoding = enc
	}
}

// WithCompression sets the decompression of a text file.
func WithCompression(c Compression) Option {
	return func(conf *config) {
		conf.compression = c
	}
}
