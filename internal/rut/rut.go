// Package rut validates Chilean RUT identity numbers (7-8 digit body plus a
// modulo-11 check character).
package rut

import (
	"regexp"
	"strings"

	dErrors "rentaldocs/pkg/domain-errors"
)

var (
	strictPattern  = regexp.MustCompile(`^(\d{7,8})-([\dK])$`)
	compactPattern = regexp.MustCompile(`^(\d{7,8})([\dK])$`)
	junkPattern    = regexp.MustCompile(`[^0-9K-]`)
)

// Normalize strips dots, spaces and stray characters and upper-cases the check
// character. When the input parses, the canonical "body-check" form is
// returned; otherwise the cleaned input is returned as-is.
func Normalize(input string) string {
	body, check, ok := split(input)
	if ok {
		return body + "-" + check
	}
	return clean(input)
}

// FormatForDisplay renders a RUT with grouped thousands, e.g. "12.345.678-5".
// Unparseable input is returned unchanged.
func FormatForDisplay(input string) string {
	body, check, ok := split(input)
	if !ok {
		return input
	}
	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + check
}

// IsValid reports whether the input carries a correct check character.
func IsValid(input string) bool {
	body, check, ok := split(input)
	if !ok {
		return false
	}
	return computeCheck(body) == check
}

// Assert fails with INVALID_RUT naming the offending field when the value is
// malformed or its check character does not match.
func Assert(field, value string) error {
	body, check, ok := split(value)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidRUT, "invalid RUT in %s", field).
			WithDetails(map[string]string{"field": field, "value": value}).
			WithHint("use the format 12.345.678-5 or 12345678-5")
	}

	expected := computeCheck(body)
	if expected != check {
		return dErrors.Newf(dErrors.CodeInvalidRUT, "invalid RUT in %s", field).
			WithDetails(map[string]string{
				"field":    field,
				"value":    value,
				"expected": body + "-" + expected,
			}).
			WithHint("the expected check character for " + body + " is " + expected)
	}
	return nil
}

func clean(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return junkPattern.ReplaceAllString(s, "")
}

func split(input string) (body, check string, ok bool) {
	normalized := clean(input)
	if m := strictPattern.FindStringSubmatch(normalized); m != nil {
		return m[1], m[2], true
	}
	// Accept compact forms like 123456785 or 12.345.6785.
	compact := strings.ReplaceAll(normalized, "-", "")
	if m := compactPattern.FindStringSubmatch(compact); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// computeCheck implements the modulo-11 algorithm: body digits right to left,
// weights cycling 2..7, 11-(sum mod 11) with 11 mapped to '0' and 10 to 'K'.
func computeCheck(body string) string {
	sum := 0
	multiplier := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * multiplier
		if multiplier == 7 {
			multiplier = 2
		} else {
			multiplier++
		}
	}

	switch mod := 11 - (sum % 11); mod {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return string(rune('0' + mod))
	}
}
