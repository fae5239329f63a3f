package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/rules"
)

// ParseRule builds a validator from its textual form. Arguments follow the
// first colon:
//
//	trim              strip whitespace, quotes and ="..." wrappers
//	digits            only 0-9
//	int               whole number (int64)
//	decimal           number with optional currency and separators
//	bool              yes/no, true/false, 1/0
//	date[:layout]     date, with an optional Go layout
//	cpf               Brazilian CPF, formatted as XXX.XXX.XXX-VD
//	regex:pattern     text matching pattern
//	oneof:a|b|c       one of the listed values
//	maxlen:n          at most n characters
//	tag:spec          go-playground/validator tag, e.g. tag:email
func ParseRule(spec string) (core.Validator, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(spec), ":")
	name = strings.ToLower(strings.TrimSpace(name))

	noArg := func(v core.Validator) (core.Validator, error) {
		if hasArg {
			return nil, fmt.Errorf("rule %q takes no argument", name)
		}
		return v, nil
	}
	needArg := func() error {
		if !hasArg || arg == "" {
			return fmt.Errorf("rule %q needs an argument", name)
		}
		return nil
	}

	switch name {
	case "trim":
		return noArg(rules.Trim())
	case "digits":
		return noArg(rules.Digits())
	case "int", "integer":
		return noArg(rules.Integer())
	case "decimal", "numeric":
		return noArg(rules.Decimal())
	case "bool", "boolean":
		return noArg(rules.Bool())
	case "cpf":
		return noArg(rules.CPF())
	case "date":
		if hasArg && arg != "" {
			return rules.Date(arg), nil
		}
		return rules.Date(), nil
	case "regex", "regexp":
		if err := needArg(); err != nil {
			return nil, err
		}
		return rules.Regexp(arg, "")
	case "oneof":
		if err := needArg(); err != nil {
			return nil, err
		}
		return rules.OneOf(strings.Split(arg, "|")...), nil
	case "maxlen":
		if err := needArg(); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("maxlen needs a positive number, got %q", arg)
		}
		return rules.MaxLength(n), nil
	case "tag":
		if err := needArg(); err != nil {
			return nil, err
		}
		if err := rules.CheckTag(arg); err != nil {
			return nil, err
		}
		return rules.Tag(arg), nil
	default:
		return nil, fmt.Errorf("unknown rule %q", name)
	}
}
