package models

import "strings"

// NormalizePhone reduces a phone number to digits and prefixes countryCode when the number
// carries no international prefix. Numbers written with a leading "+" or "00" are kept as is.
func NormalizePhone(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	international := strings.HasPrefix(phone, "+") || strings.HasPrefix(phone, "00")

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	if number == "" {
		return ""
	}

	if international {
		return strings.TrimPrefix(number, "00")
	}

	number = strings.TrimLeft(number, "0")
	countryCode = strings.TrimLeft(countryCode, "+0")

	if countryCode == "" || hasCountryCode(number, countryCode) {
		return number
	}

	return countryCode + number
}

// nationalLength is the range of national significant number lengths (area code included,
// trunk prefix dropped) of a country calling code.
type nationalLength struct {
	min, max int
}

var nationalLengths = map[string]nationalLength{
	"1":   {10, 10},
	"7":   {10, 10},
	"27":  {9, 9},
	"31":  {9, 9},
	"33":  {9, 9},
	"34":  {9, 9},
	"44":  {9, 10},
	"49":  {10, 11},
	"51":  {8, 9},
	"52":  {10, 10},
	"54":  {10, 11},
	"55":  {10, 11},
	"56":  {9, 9},
	"57":  {10, 10},
	"60":  {9, 10},
	"61":  {9, 9},
	"63":  {10, 10},
	"65":  {8, 8},
	"66":  {9, 9},
	"81":  {9, 10},
	"82":  {9, 10},
	"86":  {11, 11},
	"91":  {10, 10},
	"351": {9, 9},
	"591": {8, 8},
	"595": {9, 9},
	"598": {8, 8},
}

// E.164 caps a full number at 15 digits. Codes missing from nationalLengths accept any
// national part of at least minNationalDigits.
const (
	maxE164Digits     = 15
	minNationalDigits = 8
)

// hasCountryCode reports whether number already starts with countryCode followed by a
// national number of a plausible length. A number whose full length is itself a valid
// national length is read as national.
func hasCountryCode(number, countryCode string) bool {
	if !strings.HasPrefix(number, countryCode) || len(number) > maxE164Digits {
		return false
	}

	national := len(number) - len(countryCode)

	lengths, known := nationalLengths[countryCode]
	if !known {
		return national >= minNationalDigits
	}

	if national < lengths.min || national > lengths.max {
		return false
	}

	return len(number) < lengths.min || len(number) > lengths.max
}
