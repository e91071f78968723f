package cardcrypto

import (
	"strings"
	"unicode"
)

// MaskedSentinel is returned for values too short to show a suffix.
const MaskedSentinel = "****"

// Mask hides all but the last four characters of a plaintext PAN.
func Mask(pan string) string {
	stripped := []rune(strings.Join(strings.Fields(pan), ""))

	digits := 0
	for _, r := range stripped {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 4 {
		return MaskedSentinel
	}

	return "**** **** **** " + string(stripped[len(stripped)-4:])
}
