package game

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchRule selects how a free-text guess is compared with a title.
type MatchRule int

const (
	// MatchExact requires normalised equality.
	MatchExact MatchRule = iota
	// MatchContains accepts a guess that appears anywhere in the title.
	MatchContains
	// MatchEither also accepts a guess containing the title's primary form
	// (the part before a ":" subtitle).
	MatchEither
)

// String returns the catalogue name of the rule.
func (m MatchRule) String() string {
	switch m {
	case MatchContains:
		return "contains"
	case MatchEither:
		return "either"
	default:
		return "exact"
	}
}

// ParseMatchRule maps a catalogue name to a rule; unknown names are exact.
func ParseMatchRule(s string) MatchRule {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contains":
		return MatchContains
	case "either":
		return MatchEither
	default:
		return MatchExact
	}
}

// Normalize trims, case-folds and collapses inner whitespace.
// The result is empty iff raw is blank.
func Normalize(raw string) string {
	// Casers keep state, so each call gets its own.
	return cases.Fold().String(strings.Join(strings.Fields(raw), " "))
}

// primaryForm returns the normalised title without its ":" subtitle.
func primaryForm(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		return Normalize(title[:i])
	}
	return Normalize(title)
}

// matches applies rule to an already-normalised guess and title.
func matches(rule MatchRule, guess, title string) bool {
	if guess == "" {
		return false
	}
	if guess == title {
		return true
	}
	switch rule {
	case MatchContains:
		return strings.Contains(title, guess)
	case MatchEither:
		if strings.Contains(title, guess) {
			return true
		}
		p := primaryForm(title)
		return p != "" && strings.Contains(guess, p)
	}
	return false
}
