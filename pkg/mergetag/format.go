package mergetag

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(value string, location *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, location); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// phpTokens maps date() format characters to Go layout fragments.
var phpTokens = map[rune]string{
	'd': "02",
	'j': "2",
	'D': "Mon",
	'l': "Monday",
	'm': "01",
	'n': "1",
	'M': "Jan",
	'F': "January",
	'y': "06",
	'Y': "2006",
	'H': "15",
	'h': "03",
	'g': "3",
	'i': "04",
	's': "05",
	'A': "PM",
	'a': "pm",
	'T': "MST",
	'P': "-07:00",
	'O': "-0700",
}

// FormatDate renders t with a date() style pattern such as "d/m/Y H:i". Characters that are
// not tokens are copied literally and a backslash escapes the next character.
func FormatDate(t time.Time, pattern string) string {
	var (
		out     strings.Builder
		escaped bool
	)

	for _, r := range pattern {
		if escaped {
			out.WriteRune(r)

			escaped = false

			continue
		}

		if r == '\\' {
			escaped = true

			continue
		}

		switch r {
		case 'G':
			out.WriteString(strconv.Itoa(t.Hour()))
		case 'N':
			weekday := int(t.Weekday())
			if weekday == 0 {
				weekday = 7
			}

			out.WriteString(strconv.Itoa(weekday))
		case 'U':
			out.WriteString(strconv.FormatInt(t.Unix(), 10))
		default:
			if layout, ok := phpTokens[r]; ok {
				out.WriteString(t.Format(layout))
			} else {
				out.WriteRune(r)
			}
		}
	}

	return out.String()
}

func parseNumber(value string) (float64, bool) {
	number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}

	return number, true
}

var decimalMaskPattern = regexp.MustCompile(`^[#0,]*0(\.0+)?$`)

type decimalMask struct {
	decimals  int
	thousands bool
}

// parseDecimalMask accepts masks like "0", "0.00" or "#,##0.00".
func parseDecimalMask(pattern string) (decimalMask, bool) {
	pattern = strings.TrimSpace(pattern)
	if !decimalMaskPattern.MatchString(pattern) {
		return decimalMask{}, false
	}

	mask := decimalMask{thousands: strings.Contains(pattern, ",")}
	if _, fraction, ok := strings.Cut(pattern, "."); ok {
		mask.decimals = len(fraction)
	}

	return mask, true
}

func (m decimalMask) format(number float64) string {
	formatted := strconv.FormatFloat(number, 'f', m.decimals, 64)
	if !m.thousands {
		return formatted
	}

	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign, formatted = "-", formatted[1:]
	}

	integer, fraction, hasFraction := strings.Cut(formatted, ".")

	var grouped strings.Builder

	for i, digit := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			grouped.WriteByte(',')
		}

		grouped.WriteRune(digit)
	}

	if hasFraction {
		return sign + grouped.String() + "." + fraction
	}

	return sign + grouped.String()
}
