package geo

import (
	"fmt"
	"strings"
)

// NormalizeCEP strips the usual separators and checks that exactly eight
// digits remain.
func NormalizeCEP(code string) (string, error) {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", fmt.Errorf("%w: invalid CEP %q", ErrAddressNotFound, code)
		}
	}
	digits := b.String()
	if len(digits) != 8 {
		return "", fmt.Errorf("%w: CEP must have 8 digits, got %q", ErrAddressNotFound, code)
	}
	return digits, nil
}

// FormatCEP renders eight digits as 00000-000. Other input is returned as is.
func FormatCEP(digits string) string {
	if len(digits) != 8 {
		return digits
	}
	return digits[:5] + "-" + digits[5:]
}
