package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/extrame/ole2"
	"github.com/xuri/excelize/v2"
)

// BIFF record identifiers read by the cell scan.
const (
	biffFormula    = 0x0006
	biffEOF        = 0x000A
	biffDateMode   = 0x0022
	biffBoundSheet = 0x0085
	biffMulRK      = 0x00BD
	biffXF         = 0x00E0
	biffLabelSST   = 0x00FD
	biffBlank      = 0x0201
	biffNumber     = 0x0203
	biffLabel      = 0x0204
	biffBoolErr    = 0x0205
	biffString     = 0x0207
	biffRK         = 0x027E
	biffFormat     = 0x041E
	biffBOF        = 0x0809
)

var biffErrors = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

type cellPos struct{ row, col uint16 }

// biffSheet is the typed view of one worksheet: numbers, booleans, dates
// and formula results keyed by position, plus the width of every row that
// holds any cell. Text cells are left to the xls library.
type biffSheet struct {
	values map[cellPos]any
	widths map[uint16]int
	maxRow int
}

func (b *biffSheet) set(row, col uint16, v any) {
	b.values[cellPos{row, col}] = v
	b.touch(row, col)
}

func (b *biffSheet) touch(row, col uint16) {
	if w := int(col) + 1; w > b.widths[row] {
		b.widths[row] = w
	}
	if int(row) > b.maxRow {
		b.maxRow = int(row)
	}
}

type biffRecord struct {
	id   uint16
	data []byte
}

// biffStream iterates the records of a workbook stream.
type biffStream struct {
	buf []byte
	off int
}

func (s *biffStream) seek(off int) error {
	if off < 0 || off > len(s.buf) {
		return fmt.Errorf("record offset %d outside stream", off)
	}
	s.off = off
	return nil
}

func (s *biffStream) next() (biffRecord, error) {
	if s.off+4 > len(s.buf) {
		return biffRecord{}, io.EOF
	}
	id := binary.LittleEndian.Uint16(s.buf[s.off:])
	size := int(binary.LittleEndian.Uint16(s.buf[s.off+2:]))
	start := s.off + 4
	if start+size > len(s.buf) {
		return biffRecord{}, fmt.Errorf("record %#04x overruns stream", id)
	}
	s.off = start + size
	return biffRecord{id: id, data: s.buf[start : start+size]}, nil
}

// biffGlobals is what the workbook globals contribute to cell typing.
type biffGlobals struct {
	biff8     bool
	date1904  bool
	xfFormats []uint16
	formats   map[uint16]string
	sheets    []int
}

func (g *biffGlobals) isDate(xf uint16) bool {
	if int(xf) >= len(g.xfFormats) {
		return false
	}
	id := g.xfFormats[xf]
	if code, ok := g.formats[id]; ok {
		return dateFormat(code)
	}
	return builtinDateFormat(int(id))
}

func (g *biffGlobals) number(xf uint16, f float64) any {
	if g.isDate(xf) {
		if t, err := excelize.ExcelDateToTime(f, g.date1904); err == nil {
			return t
		}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// workbookStream extracts the BIFF stream from the compound document.
func workbookStream(data []byte) ([]byte, error) {
	doc, err := ole2.Open(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	dir, err := doc.ListDir()
	if err != nil {
		return nil, err
	}

	var book, root *ole2.File
	for _, f := range dir {
		switch f.Name() {
		case "Workbook", "Book":
			book = f
		case "Root Entry":
			root = f
		}
	}
	if book == nil || root == nil {
		return nil, errors.New("no workbook stream")
	}
	return io.ReadAll(doc.OpenFile(book, root))
}

// scanBIFF reads the typed cells of the sheet at position index in the
// workbook's sheet list.
func scanBIFF(data []byte, index int) (*biffSheet, error) {
	buf, err := workbookStream(data)
	if err != nil {
		return nil, err
	}
	s := &biffStream{buf: buf}

	g, err := readGlobals(s)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(g.sheets) {
		return nil, fmt.Errorf("sheet %d not in workbook", index)
	}
	if err := s.seek(g.sheets[index]); err != nil {
		return nil, err
	}
	return readSheet(s, g)
}

func readGlobals(s *biffStream) (*biffGlobals, error) {
	g := &biffGlobals{formats: make(map[uint16]string)}
	for {
		rec, err := s.next()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, err
		}

		d := rec.data
		switch rec.id {
		case biffBOF:
			if len(d) >= 2 {
				g.biff8 = binary.LittleEndian.Uint16(d) == 0x0600
			}
		case biffDateMode:
			if len(d) >= 2 {
				g.date1904 = binary.LittleEndian.Uint16(d) == 1
			}
		case biffXF:
			if len(d) >= 4 {
				g.xfFormats = append(g.xfFormats, binary.LittleEndian.Uint16(d[2:]))
			}
		case biffFormat:
			if len(d) >= 4 {
				id := binary.LittleEndian.Uint16(d)
				g.formats[id] = biffText(d[2:], g.biff8)
			}
		case biffBoundSheet:
			if len(d) >= 4 {
				g.sheets = append(g.sheets, int(binary.LittleEndian.Uint32(d)))
			}
		case biffEOF:
			return g, nil
		}
	}
}

func readSheet(s *biffStream, g *biffGlobals) (*biffSheet, error) {
	sheet := &biffSheet{values: make(map[cellPos]any), widths: make(map[uint16]int)}

	var pending *cellPos // formula waiting for its STRING record
	for {
		rec, err := s.next()
		if errors.Is(err, io.EOF) {
			return sheet, nil
		}
		if err != nil {
			return nil, err
		}

		d := rec.data
		switch rec.id {
		case biffEOF:
			return sheet, nil
		case biffString:
			if pending != nil {
				sheet.values[*pending] = biffText(d, g.biff8)
				pending = nil
			}
			continue
		}
		pending = nil
		if len(d) < 4 {
			continue
		}
		row, col := binary.LittleEndian.Uint16(d), binary.LittleEndian.Uint16(d[2:])

		switch rec.id {
		case biffNumber:
			if len(d) >= 14 {
				f := math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))
				sheet.set(row, col, g.number(binary.LittleEndian.Uint16(d[4:]), f))
			}
		case biffRK:
			if len(d) >= 10 {
				sheet.set(row, col, g.number(binary.LittleEndian.Uint16(d[4:]), rkValue(binary.LittleEndian.Uint32(d[6:]))))
			}
		case biffMulRK:
			for i, c := 4, col; i+6 <= len(d)-2; i, c = i+6, c+1 {
				xf := binary.LittleEndian.Uint16(d[i:])
				sheet.set(row, c, g.number(xf, rkValue(binary.LittleEndian.Uint32(d[i+2:]))))
			}
		case biffBoolErr:
			if len(d) >= 8 {
				if d[7] == 0 {
					sheet.set(row, col, d[6] != 0)
				} else if msg, ok := biffErrors[d[6]]; ok {
					sheet.set(row, col, msg)
				}
			}
		case biffFormula:
			if len(d) < 14 {
				continue
			}
			res := d[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				f := math.Float64frombits(binary.LittleEndian.Uint64(res))
				sheet.set(row, col, g.number(binary.LittleEndian.Uint16(d[4:]), f))
				continue
			}
			switch res[0] {
			case 0:
				pending = &cellPos{row, col}
				sheet.set(row, col, "")
			case 1:
				sheet.set(row, col, res[2] != 0)
			case 2:
				sheet.set(row, col, biffErrors[res[2]])
			default:
				sheet.set(row, col, "")
			}
		case biffLabelSST, biffLabel, biffBlank:
			sheet.touch(row, col)
		}
	}
}

// rkValue decodes the compressed RK number encoding.
func rkValue(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

// biffText decodes a length-prefixed string: a 16-bit count and an option
// byte in BIFF8, an 8-bit count in earlier versions. Rich text and phonetic
// trailers are ignored.
func biffText(d []byte, biff8 bool) string {
	if !biff8 {
		if len(d) < 1 {
			return ""
		}
		n := min(int(d[0]), len(d)-1)
		return string(d[1 : 1+n])
	}

	if len(d) < 3 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(d))
	flags := d[2]
	p := 3
	if flags&0x08 != 0 {
		p += 2
	}
	if flags&0x04 != 0 {
		p += 4
	}
	if p > len(d) {
		return ""
	}
	d = d[p:]

	if flags&0x01 == 0 {
		n = min(n, len(d))
		units := make([]uint16, n)
		for i := range units {
			units[i] = uint16(d[i])
		}
		return string(utf16.Decode(units))
	}
	n = min(n, len(d)/2)
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(d[2*i:])
	}
	return string(utf16.Decode(units))
}

// builtinDateFormat reports whether a built-in number format id renders a
// date or timestamp.
func builtinDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

var formatLiterals = regexp.MustCompile(`"[^"]*"|\\.|\[[^\]]*\]`)

// dateFormat reports whether a custom number format code renders a date,
// ignoring quoted literals, escapes and bracketed colors or conditions.
func dateFormat(code string) bool {
	code = strings.ToLower(code)
	if strings.Contains(code, "[h]") || strings.Contains(code, "[mm]") || strings.Contains(code, "[ss]") {
		return true
	}
	code = formatLiterals.ReplaceAllString(code, "")
	return strings.Contains(code, "y") || strings.Contains(code, "h") ||
		(strings.Contains(code, "d") && strings.Contains(code, "m"))
}
