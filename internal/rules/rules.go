// Package rules provides ready-made field validators for core.Config.
//
// Rules treat an empty value (see reader.IsEmpty) as "not provided" and
// pass it through unchanged; use RequiredFields to reject empty values.
// Typed rules convert on success: Date yields time.Time, Decimal yields
// pgtype.Numeric, Integer int64, Bool bool and CPF the formatted number.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Chain runs validators in order, feeding each the previous result. The
// first rejection stops the chain.
func Chain(vs ...core.Validator) core.Validator {
	return func(v any, row reader.Row) (any, error) {
		for _, validate := range vs {
			out, err := validate(v, row)
			if err != nil {
				return nil, err
			}
			v = out
		}
		return v, nil
	}
}

// Trim removes spreadsheet artifacts from text: surrounding whitespace, an
// Excel formula prefix (="...") and surrounding quotes.
func Trim() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		return CleanCell(s), nil
	}
}

// CleanCell removes common CSV artifacts from a cell value.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// text renders a cell value as a string for text-based rules.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
