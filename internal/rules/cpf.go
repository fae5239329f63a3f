package rules

import (
	"strings"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// CPF validates a Brazilian individual taxpayer number given either as 11
// digits or in the long XXX.XXX.XXX-VD form. It returns the long form.
func CPF() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		formatted, err := FormatCPF(text(v))
		if err != nil {
			return nil, err
		}
		return formatted, nil
	}
}

// FormatCPF validates s and returns it as XXX.XXX.XXX-VD.
func FormatCPF(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 11 && len(s) != 14 {
		return "", core.Reject("CPF requires at most 11 digits or 14 characters.")
	}

	digits := strings.NewReplacer(".", "", "-", "").Replace(s)
	if len(digits) != 11 || !isDigits(digits) {
		return "", core.Reject("CPF requires only numbers, allow '.' and '-' for long format.")
	}

	if !validCPF(digits) {
		return "", core.Reject("Invalid CPF number.")
	}

	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11], nil
}

func validCPF(d string) bool {
	if strings.Count(d, d[:1]) == len(d) {
		return false
	}
	return checkDigit(d[:9], 10) == d[9] && checkDigit(d[:10], 11) == d[10]
}

// checkDigit computes a CPF verification digit with weights starting at
// weight and decreasing by one per position.
func checkDigit(d string, weight int) byte {
	sum := 0
	for i := 0; i < len(d); i++ {
		sum += int(d[i]-'0') * (weight - i)
	}
	r := sum * 10 % 11
	if r == 10 {
		r = 0
	}
	return byte('0' + r)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
