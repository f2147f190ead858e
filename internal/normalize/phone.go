package normalize

import (
	"fmt"
	"strings"
)

// Phone strips to digits and accepts a 10-digit number or an
// 11-digit number with a leading country code of 1, emitting the
// canonical "(NNN) NNN-NNNN" form.
func Phone(raw string) (clean string, valid bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch len(digits) {
	case 11:
		if digits[0] != '1' {
			return digits, false
		}
		digits = digits[1:]
	case 10:
		// already bare
	default:
		return digits, false
	}

	return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]), true
}

// PhoneSuffix returns the last 7 digits of a normalized phone number,
// used by the similarity kernel's phone-suffix comparison.
func PhoneSuffix(normalizedPhone string) string {
	var digits strings.Builder
	for _, r := range normalizedPhone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) < 7 {
		return s
	}
	return s[len(s)-7:]
}
