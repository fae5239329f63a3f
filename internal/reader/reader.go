// Package reader turns delimited text and spreadsheets into rows keyed by
// normalized header names.
//
// Every format shares the same contract: the first physical line (or sheet
// row 0) is the header, each later line becomes a [Row] holding one value
// per header, missing trailing cells are "", extra cells are dropped and
// rows whose cells are all empty are skipped.
//
//	r, err := reader.Open(reader.FromPath("people.csv"), reader.Options{})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for row, err := range reader.All(r) {
//	    ...
//	}
package reader

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Reader yields the rows of one tabular source. A Reader is single pass and
// not safe for concurrent use.
type Reader interface {
	// Headers returns the normalized header names. The header line is read
	// on first call and cached.
	Headers() ([]string, error)

	// Next returns the next non-blank data row, or io.EOF.
	Next() (Row, error)

	// Close releases the underlying handle. It is safe to call twice.
	Close() error
}

// Factory builds a Reader for a source.
type Factory func(src *Source, opts Options) (Reader, error)

// All adapts r to a range-over-func sequence. Iteration stops after the
// first error, which is yielded once.
func All(r Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// rawSource is what a format implementation provides: raw header cells,
// raw records and a way to release resources.
type rawSource interface {
	header() ([]string, error)
	record() ([]any, error)
	close() error
}

// table implements Reader on top of a rawSource. It owns header
// normalization, row assembly and text decoding.
type table struct {
	raw     rawSource
	opts    Options
	name    string
	headers []string
	err     error
	started bool
	closed  bool
}

func newTable(name string, raw rawSource, opts Options) *table {
	return &table{raw: raw, opts: opts, name: name}
}

func (t *table) Headers() ([]string, error) {
	if t.closed {
		return nil, fmt.Errorf("%w: %s is closed", ErrSourceUnreadable, t.name)
	}
	if t.started {
		return t.headers, t.err
	}
	t.started = true

	cells, err := t.raw.header()
	switch {
	case errors.Is(err, io.EOF):
		t.err = fmt.Errorf("%w: %s has no header line", ErrMalformedSource, t.name)
	case err != nil:
		t.err = classify(t.name, err)
	case blankStrings(cells):
		t.err = fmt.Errorf("%w: %s has an empty header line", ErrMalformedSource, t.name)
	default:
		t.headers = normalizeHeaders(cells, t.opts.codecs())
	}
	return t.headers, t.err
}

func (t *table) Next() (Row, error) {
	if t.closed {
		return nil, fmt.Errorf("%w: %s is closed", ErrSourceUnreadable, t.name)
	}
	headers, err := t.Headers()
	if err != nil {
		return nil, err
	}

	for {
		cells, err := t.raw.record()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, classify(t.name, err)
		}

		row := make(Row, len(headers)+1)
		for i, h := range headers {
			if i >= len(cells) || cells[i] == nil {
				row[h] = ""
				continue
			}
			row[h] = t.value(cells[i])
		}
		// Cells beyond the header are dropped before the blank check.
		if row.Blank() {
			continue
		}
		return row, nil
	}
}

func (t *table) value(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	return decodeText(s, t.opts.codecs())
}

func (t *table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.raw.close()
}

// classify wraps err in ErrMalformedSource unless it already carries a
// reader error kind.
func classify(name string, err error) error {
	if errors.Is(err, ErrSourceUnreadable) || errors.Is(err, ErrMalformedSource) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedSource, name, err)
}

func blankStrings(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
