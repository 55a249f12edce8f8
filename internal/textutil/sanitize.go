package textutil

import "strings"

// MaxKeywordLength caps sanitized keyword length in runes.
const MaxKeywordLength = 100

// quoteReplacer strips straight and typographic quotation marks.
var quoteReplacer = strings.NewReplacer(
	`"`, "",
	"'", "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
	"「", "",
	"」", "",
)

const trailingPunctuation = ".,!?:;。、…-"

// SanitizeKeyword normalizes a raw search term: quotation marks are removed,
// whitespace runs collapse to single spaces, trailing punctuation is trimmed,
// and the result is capped at MaxKeywordLength runes.
func SanitizeKeyword(raw string) string {
	cleaned := quoteReplacer.Replace(raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimRight(cleaned, trailingPunctuation)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	runes := []rune(cleaned)
	if len(runes) > MaxKeywordLength {
		cleaned = strings.TrimSpace(string(runes[:MaxKeywordLength]))
	}
	return cleaned
}
