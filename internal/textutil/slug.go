package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks so accented characters fold to their ASCII base.
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts free text into a lowercase hyphen-separated slug. Accented
// characters fold to their ASCII base; every other non-alphanumeric run
// collapses into a single hyphen. Returns "" when nothing survives.
func Slugify(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if folded, _, err := transform.String(deaccent, value); err == nil {
		value = folded
	}

	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
