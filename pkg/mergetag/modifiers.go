package mergetag

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ModifierFunc transforms a resolved value.
type ModifierFunc func(value, argument string) string

func defaultModifiers(location *time.Location) map[string]ModifierFunc {
	return map[string]ModifierFunc{
		"default": func(value, argument string) string {
			if strings.TrimSpace(value) == "" {
				return argument
			}

			return value
		},
		"format": func(value, argument string) string {
			return formatValue(value, argument, location)
		},
		"upper":   func(value, _ string) string { return strings.ToUpper(value) },
		"lower":   func(value, _ string) string { return strings.ToLower(value) },
		"trim":    func(value, _ string) string { return strings.TrimSpace(value) },
		"ucfirst": func(value, _ string) string { return ucfirst(value) },
	}
}

func ucfirst(value string) string {
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return value
	}

	return string(unicode.ToUpper(r)) + value[size:]
}

// formatValue applies a date pattern when the value is a date, or a decimal mask when the
// value is numeric. Anything else passes through.
func formatValue(value, pattern string, location *time.Location) string {
	if pattern == "" {
		return value
	}

	if t, ok := parseDate(value, location); ok {
		return FormatDate(t, pattern)
	}

	if number, ok := parseNumber(value); ok {
		if mask, ok := parseDecimalMask(pattern); ok {
			return mask.format(number)
		}
	}

	return value
}
