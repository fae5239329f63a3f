package reader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads Office Open XML workbooks through excelize's streaming
// row iterator. Numeric cells become float64 (int64 when integral), boolean
// cells bool and date cells time.Time; everything else is text.
type XLSXReader struct {
	*table
}

// NewXLSX opens src as an xlsx workbook.
func NewXLSX(src *Source, opts Options) (Reader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, src.Name(), err)
	}

	sheet, err := pickSheet(f.GetSheetList(), opts.Sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, src.Name(), err)
	}

	raw, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, src.Name(), err)
	}
	shown, err := f.Rows(sheet)
	if err != nil {
		raw.Close()
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, src.Name(), err)
	}

	source := &xlsxSource{file: f, raw: raw, shown: shown}
	return &XLSXReader{table: newTable(src.Name(), source, opts)}, nil
}

func pickSheet(names []string, want string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want == "" {
		return names[0], nil
	}
	for _, n := range names {
		if n == want {
			return n, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found", want)
}

// xlsxSource walks the sheet with two row iterators in lockstep: one
// yields raw stored values, the other the values rendered through each
// cell's number format. Comparing the two recovers booleans and dates
// without loading the worksheet model.
type xlsxSource struct {
	file  *excelize.File
	raw   *excelize.Rows
	shown *excelize.Rows
}

func (s *xlsxSource) header() ([]string, error) {
	if !s.advance() {
		return nil, s.end()
	}
	if _, err := s.raw.Columns(excelize.Options{RawCellValue: true}); err != nil {
		return nil, err
	}
	return s.shown.Columns()
}

func (s *xlsxSource) record() ([]any, error) {
	if !s.advance() {
		return nil, s.end()
	}
	raw, err := s.raw.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	shown, err := s.shown.Columns()
	if err != nil {
		return nil, err
	}

	cells := make([]any, len(raw))
	for i, v := range raw {
		f := ""
		if i < len(shown) {
			f = shown[i]
		}
		cells[i] = typedCell(v, f)
	}
	return cells, nil
}

func (s *xlsxSource) advance() bool {
	a, b := s.raw.Next(), s.shown.Next()
	return a && b
}

func (s *xlsxSource) end() error {
	if err := s.raw.Error(); err != nil {
		return err
	}
	if err := s.shown.Error(); err != nil {
		return err
	}
	return io.EOF
}

// typedCell derives a cell value from its stored form and its rendered
// form. Text holding a plain number is indistinguishable from a numeric
// cell and is returned as a number.
func typedCell(raw, shown string) any {
	if raw == "" {
		return ""
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if raw != shown {
			if t, err := parseISODate(raw); err == nil {
				return t
			}
		}
		return raw
	}

	switch {
	case raw == "1" && strings.EqualFold(shown, "TRUE"):
		return true
	case raw == "0" && strings.EqualFold(shown, "FALSE"):
		return false
	}

	if shown != raw && rendersDate(shown) {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t
		}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

var (
	numberDecoration = strings.NewReplacer(" ", "", ",", "", "$", "", "€", "", "£", "", "¥", "", "%", "", "(", "", ")", "")
	datePattern      = regexp.MustCompile(`\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)
	monthNames       = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
)

// rendersDate reports whether a formatted number reads as a date or a
// time of day rather than a decorated number.
func rendersDate(shown string) bool {
	if _, err := strconv.ParseFloat(numberDecoration.Replace(shown), 64); err == nil {
		return false
	}
	if strings.Contains(shown, ":") || datePattern.MatchString(shown) {
		return true
	}
	lower := strings.ToLower(shown)
	for _, m := range monthNames {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISODate(v string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO date: %q", v)
}

func (s *xlsxSource) close() error {
	return errors.Join(s.raw.Close(), s.shown.Close(), s.file.Close())
}
