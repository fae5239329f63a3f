package reader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader turns a raw header cell into a lookup key: trimmed,
// lowercased, diacritics removed, whitespace runs joined with "_" and any
// remaining non-ASCII dropped. "  Data de Nascimento " becomes
// "data_de_nascimento".
func NormalizeHeader(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = stripDiacritics(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r > unicode.MaxASCII:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte('_')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeHeaders applies NormalizeHeader to every cell and makes the
// result unique. Empty names become column_N, repeated names get _2, _3...
func normalizeHeaders(raw []string, codecs []encoding.Encoding) []string {
	out := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, cell := range raw {
		name := NormalizeHeader(decodeText(cell, codecs))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if seen[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// decodeText returns s as valid UTF-8. Text that already is valid passes
// through. Otherwise each codec is tried and the first clean decode wins;
// when none applies, invalid bytes are replaced with U+FFFD.
func decodeText(s string, codecs []encoding.Encoding) string {
	if utf8.ValidString(s) {
		return s
	}
	for _, c := range codecs {
		out, err := c.NewDecoder().String(s)
		if err != nil {
			continue
		}
		if utf8.ValidString(out) && !strings.ContainsRune(out, utf8.RuneError) {
			return out
		}
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// CodecByName resolves an encoding label such as "windows-1252",
// "latin1" or "iso-8859-15".
func CodecByName(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
