// Package generation turns researched candidates into validated articles,
// retrying once with an expansion hint when the first draft comes back thin.
package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"newsmill/internal/services"
)

// Acceptance thresholds, counted in runes.
const (
	MinTitleLength    = 10
	MinSummaryLength  = 100
	MinIntroLength    = 300
	MinSectionLength  = 200
	MinCombinedLength = 1800
)

// Section is one titled body block of an article.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Article is the structured draft returned by the text-generation service.
type Article struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Intro    string    `json:"intro"`
	Sections []Section `json:"sections"`
	Tags     []string  `json:"tags"`
	// Keywords are follow-up search terms the model surfaced while drafting;
	// they feed the keyword queue, not the rendered document.
	Keywords []string `json:"keywords"`
}

// CombinedLength returns the total rune count of all prose fields.
func (a Article) CombinedLength() int {
	total := utf8.RuneCountInString(a.Title) +
		utf8.RuneCountInString(a.Summary) +
		utf8.RuneCountInString(a.Intro)
	for _, s := range a.Sections {
		total += utf8.RuneCountInString(s.Heading) + utf8.RuneCountInString(s.Body)
	}
	return total
}

// Validate applies the acceptance checks. The returned error wraps
// services.ErrValidation and names the first failing check.
func Validate(a Article) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(a.Title)); n < MinTitleLength {
		return reject(fmt.Sprintf("title too short (%d < %d)", n, MinTitleLength))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(a.Summary)); n < MinSummaryLength {
		return reject(fmt.Sprintf("summary too short (%d < %d)", n, MinSummaryLength))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(a.Intro)); n < MinIntroLength {
		return reject(fmt.Sprintf("intro too short (%d < %d)", n, MinIntroLength))
	}
	if len(a.Sections) == 0 {
		return reject("no sections")
	}
	longest := 0
	for _, s := range a.Sections {
		if n := utf8.RuneCountInString(strings.TrimSpace(s.Body)); n > longest {
			longest = n
		}
	}
	if longest < MinSectionLength {
		return reject(fmt.Sprintf("longest section too short (%d < %d)", longest, MinSectionLength))
	}
	if n := a.CombinedLength(); n < MinCombinedLength {
		return reject(fmt.Sprintf("combined length too short (%d < %d)", n, MinCombinedLength))
	}
	return nil
}

func reject(message string) error {
	return services.Wrap(services.ErrValidation, "generation", "validate", message, nil)
}
