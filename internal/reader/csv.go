package reader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// CSVReader reads delimited text. The first physical line is the header, so
// a source starting with an empty line is malformed. A UTF-8 byte order
// mark is skipped and lines may have any number of fields.
type CSVReader struct {
	*table
}

// NewCSV opens src as delimited text.
func NewCSV(src *Source, opts Options) (Reader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(SkipBOM(rc))
	cr := csv.NewReader(br)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	raw := &csvSource{r: cr, head: br, c: rc, coerce: opts.CoerceNumbers}
	return &CSVReader{table: newTable(src.Name(), raw, opts)}, nil
}

type csvSource struct {
	r      *csv.Reader
	head   *bufio.Reader
	c      io.Closer
	coerce bool
}

func (s *csvSource) header() ([]string, error) {
	// encoding/csv silently skips empty lines, which would promote the
	// first data line to header.
	if b, err := s.head.Peek(1); err == nil && (b[0] == '\n' || b[0] == '\r') {
		return []string{""}, nil
	}
	rec, err := s.r.Read()
	if err != nil {
		return nil, csvErr(err)
	}
	return rec, nil
}

func (s *csvSource) record() ([]any, error) {
	rec, err := s.r.Read()
	if err != nil {
		return nil, csvErr(err)
	}
	cells := make([]any, len(rec))
	for i, v := range rec {
		cells[i] = v
		if s.coerce && isDigits(v) {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				cells[i] = n
			}
		}
	}
	return cells, nil
}

func (s *csvSource) close() error {
	return s.c.Close()
}

func csvErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("%w: %v", ErrMalformedSource, perr)
	}
	return fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
}
