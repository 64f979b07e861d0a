package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeParam collapses runs of whitespace in a query value and caps it
// at maxRunes characters. A non-positive maxRunes disables the cap.
func SanitizeParam(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimRight(string(runes[:maxRunes]), " ")
}
