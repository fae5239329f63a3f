package rules

// convert.go provides typed validators for the messy reality of
// user-provided spreadsheet data:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
		time.RFC3339,
	}
)

// Date parses text into a time.Time. With no layouts the common US, EU and
// ISO layouts are tried; time.Time values from spreadsheets pass through.
func Date(layouts ...string) core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		s := text(v)
		if len(layouts) > 0 {
			for _, layout := range layouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
			return nil, core.Rejectf("Invalid date %q, expected %s.", s, strings.Join(layouts, " or "))
		}
		if t, ok := ParseDate(s); ok {
			return t, nil
		}
		return nil, core.Rejectf("Invalid date %q.", s)
	}
}

// ParseDate tries the built-in layouts, four-digit years first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// Decimal parses a number into pgtype.Numeric. Currency symbols, thousands
// separators and accounting negatives "(1,234.50)" are accepted.
func Decimal() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		n, ok := ParseNumeric(text(v))
		if !ok {
			return nil, core.Rejectf("Invalid number %q.", text(v))
		}
		return n, nil
	}
}

// ParseNumeric converts a string to pgtype.Numeric.
func ParseNumeric(s string) (pgtype.Numeric, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "R$", "") // Real
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, false
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, false
	}
	return n, true
}

// Integer parses a whole number into int64.
func Integer() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
			return nil, core.Rejectf("Invalid integer %v.", x)
		}
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := strings.ReplaceAll(text(v), ",", "")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, core.Rejectf("Invalid integer %q.", text(v))
		}
		return n, nil
	}
}

// Bool accepts true/false, yes/no, t/f, y/n, 1/0 and the Portuguese
// sim/não.
func Bool() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			if x == 0 || x == 1 {
				return x == 1, nil
			}
		}
		if reader.IsEmpty(v) {
			return v, nil
		}
		b, ok := ParseBool(text(v))
		if !ok {
			return nil, core.Rejectf("Invalid boolean %q.", text(v))
		}
		return b, nil
	}
}

// ParseBool converts yes/no style text to a bool.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1", "sim", "s":
		return true, true
	case "false", "f", "no", "n", "0", "não", "nao":
		return false, true
	default:
		return false, false
	}
}
