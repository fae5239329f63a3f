package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/extrame/xls"
)

// XLSReader reads legacy BIFF (.xls) workbooks. Text comes from the xls
// library; numbers, booleans, dates and formula results are recovered from
// the cell records it reduces to text. Numeric cells become float64 (int64
// when integral) and cells with a date format time.Time.
type XLSReader struct {
	*table
}

// NewXLS opens src as an xls workbook.
func NewXLS(src *Source, opts Options) (Reader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	raw, err := openXLSSheet(data, opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, src.Name(), err)
	}
	return &XLSReader{table: newTable(src.Name(), raw, opts)}, nil
}

// openXLSSheet parses the workbook and selects a sheet. The BIFF parser
// panics on some corrupt inputs, which are reported as errors.
func openXLSSheet(data []byte, want string) (src *xlsSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("no workbook stream")
	}

	names := make([]string, 0, wb.NumSheets())
	index := make(map[string]int, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if _, dup := index[s.Name]; !dup {
			index[s.Name] = i
		}
		names = append(names, s.Name)
	}

	name, err := pickSheet(names, want)
	if err != nil {
		return nil, err
	}
	typed, err := scanBIFF(data, index[name])
	if err != nil {
		return nil, err
	}
	return &xlsSource{sheet: wb.GetSheet(index[name]), typed: typed}, nil
}

type xlsSource struct {
	sheet *xls.WorkSheet
	typed *biffSheet
	next  int
}

func (s *xlsSource) cells() ([]any, error) {
	if s.next > s.typed.maxRow {
		return nil, io.EOF
	}
	i := s.next
	s.next++

	width := s.typed.widths[uint16(i)]
	if width == 0 {
		if i == 0 {
			// Row 0 is the header and must exist.
			return nil, io.EOF
		}
		return []any{}, nil
	}

	row := sheetRow(s.sheet, i)
	out := make([]any, width)
	for c := range out {
		if v, ok := s.typed.values[cellPos{uint16(i), uint16(c)}]; ok {
			out[c] = v
			continue
		}
		if row != nil {
			out[c] = row.Col(c)
		} else {
			out[c] = ""
		}
	}
	return out, nil
}

// sheetRow returns row i, or nil when the library holds no such row.
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func (s *xlsSource) header() ([]string, error) {
	cells, err := s.cells()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = cellText(c)
	}
	return out, nil
}

func (s *xlsSource) record() ([]any, error) {
	return s.cells()
}

func (s *xlsSource) close() error { return nil }

// cellText renders a typed cell for use as a header name.
func cellText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return fmt.Sprint(v)
	}
}
