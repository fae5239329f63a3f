package reader

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultDelimiter separates fields in delimited text unless overridden.
const DefaultDelimiter = ';'

// Options configure a Reader. The zero value is usable.
type Options struct {
	// Delimiter is the CSV field separator. Zero means DefaultDelimiter.
	Delimiter rune

	// Sheet selects a spreadsheet sheet by name. Empty means the first sheet.
	Sheet string

	// CoerceNumbers upgrades pure-digit CSV cells to int64.
	CoerceNumbers bool

	// Codecs are tried in order on text that is not valid UTF-8.
	// Nil means Windows-1252.
	Codecs []encoding.Encoding
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

func (o Options) codecs() []encoding.Encoding {
	if o.Codecs == nil {
		return []encoding.Encoding{charmap.Windows1252}
	}
	return o.Codecs
}
