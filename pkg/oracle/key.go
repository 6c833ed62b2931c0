package oracle

import (
	"strings"
	"unicode"
)

// NormalizeKey lowers key to ASCII snake_case. Runs of other characters
// collapse into one underscore.
func NormalizeKey(key string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(key) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pending = true
		}
	}
	return b.String()
}
