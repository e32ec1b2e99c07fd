package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/go-data-exporter/cursor"
)

// recordReader splits delimited text into records. Fields may be wrapped in
// the enclosure rune, in which case they can contain the delimiter, line
// breaks and doubled enclosures. Blank lines are not records.
type recordReader struct {
	r         *bufio.Reader
	delimiter rune
	enclosure rune
	line      int
}

func newRecordReader(r io.Reader, delimiter, enclosure rune) *recordReader {
	return &recordReader{
		r:         bufio.NewReaderSize(r, 64*1024),
		delimiter: delimiter,
		enclosure: enclosure,
	}
}

// readLine returns the next physical line without its terminator.
func (rr *recordReader) readLine() (string, error) {
	s, err := rr.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	rr.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, nil
}

// read returns the next record and the 1-based line it starts on.
func (rr *recordReader) read() ([]string, int, error) {
	var text string
	for text == "" {
		var err error
		if text, err = rr.readLine(); err != nil {
			return nil, 0, err
		}
	}
	start := rr.line

	var (
		fields   []string
		field    strings.Builder
		quoted   bool
		inQuotes bool
	)
	for {
		runes := []rune(text)
		for i := 0; i < len(runes); i++ {
			c := runes[i]
			switch {
			case inQuotes && c == rr.enclosure:
				if i+1 < len(runes) && runes[i+1] == rr.enclosure {
					field.WriteRune(c)
					i++
					continue
				}
				inQuotes = false
			case inQuotes:
				field.WriteRune(c)
			case c == rr.enclosure && !quoted && field.Len() == 0:
				inQuotes, quoted = true, true
			case c == rr.delimiter:
				fields = append(fields, field.String())
				field.Reset()
				quoted = false
			default:
				field.WriteRune(c)
			}
		}
		if !inQuotes {
			break
		}
		next, err := rr.readLine()
		if err == io.EOF {
			return nil, 0, cursor.MalformedInput("unterminated enclosure in record starting on line %d", start)
		}
		if err != nil {
			return nil, 0, err
		}
		field.WriteByte('\n')
		text = next
	}
	fields = append(fields, field.String())
	return fields, start, nil
}
