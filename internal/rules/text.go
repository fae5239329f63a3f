package rules

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Digits accepts values made only of the digits 0-9 and returns them as
// text, so "00123" keeps its leading zeros.
func Digits() core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := text(v)
		for _, r := range s {
			if r < '0' || r > '9' {
				return nil, core.Reject("Only digits are allowed.")
			}
		}
		return s, nil
	}
}

// Regexp accepts text matching pattern. msg overrides the rejection message.
func Regexp(pattern, msg string) (core.Validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := text(v)
		if !re.MatchString(s) {
			if msg != "" {
				return nil, core.Reject(msg)
			}
			return nil, core.Rejectf("Value %q does not match the expected format.", s)
		}
		return s, nil
	}, nil
}

// OneOf accepts one of the allowed values, compared case-insensitively.
// The canonical spelling from allowed is returned.
func OneOf(allowed ...string) core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := text(v)
		i := slices.IndexFunc(allowed, func(a string) bool { return strings.EqualFold(a, s) })
		if i < 0 {
			return nil, core.Rejectf("Value %q is not one of: %s.", s, strings.Join(allowed, ", "))
		}
		return allowed[i], nil
	}
}

// MaxLength rejects text longer than n characters.
func MaxLength(n int) core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := text(v)
		if utf8.RuneCountInString(s) > n {
			return nil, core.Rejectf("Value must have at most %d characters.", n)
		}
		return s, nil
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func tagValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// CheckTag reports whether tag is understood by the validator. Unknown
// tags make the validator panic, so definitions are checked up front.
func CheckTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid validator tag %q: %v", tag, r)
		}
	}()
	_ = tagValidator().Var("", tag)
	return nil
}

// Tag validates text with a go-playground/validator tag such as "email",
// "url", "uuid4" or "len=8,numeric".
func Tag(tag string) core.Validator {
	return func(v any, _ reader.Row) (any, error) {
		if reader.IsEmpty(v) {
			return v, nil
		}
		s := text(v)
		if err := tagValidator().Var(s, tag); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				msgs := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					msgs = append(msgs, tagMessage(s, fe))
				}
				return nil, core.Reject(msgs...)
			}
			return nil, core.Reject(err.Error())
		}
		return s, nil
	}
}

func tagMessage(value string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("%q is not a valid e-mail address.", value)
	case "url", "http_url":
		return fmt.Sprintf("%q is not a valid URL.", value)
	case "uuid", "uuid4":
		return fmt.Sprintf("%q is not a valid UUID.", value)
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("Value %q failed %s=%s.", value, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("Value %q failed %s.", value, fe.Tag())
	}
}
