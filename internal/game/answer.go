// internal/game/answer.go
//
// Answer variants. An Answer is built once from the day's content and never
// mutated; sessions only ever call Evaluate with a normalised guess.
//   - FixedString:    free-text title, compared per MatchRule.
//   - LetterSequence: fixed-length letters scored by Score.
//   - IndexedItem:    a title plus an item count (poster tiles).

package game

import (
	"strings"
	"unicode"
)

// AnswerKind names the Answer variant.
type AnswerKind string

const (
	KindFixedString    AnswerKind = "fixed"
	KindLetterSequence AnswerKind = "letters"
	KindIndexedItem    AnswerKind = "indexed"
)

// Answer is the target value a session tries to elicit.
type Answer interface {
	// Evaluate compares a normalised, non-empty guess with the answer.
	Evaluate(guess string) (Evaluation, error)
	// Primary is the display form of the answer.
	Primary() string
	Kind() AnswerKind
}

// FixedString is a title matched by case-insensitive equality or, depending
// on the rule, substring containment.
type FixedString struct {
	title string
	norm  string
	rule  MatchRule
}

// NewFixedString builds a title answer.
func NewFixedString(title string, rule MatchRule) FixedString {
	return FixedString{title: strings.TrimSpace(title), norm: Normalize(title), rule: rule}
}

func (f FixedString) Evaluate(guess string) (Evaluation, error) {
	return Evaluation{Match: matches(f.rule, guess, f.norm)}, nil
}

func (f FixedString) Primary() string  { return f.title }
func (f FixedString) Kind() AnswerKind { return KindFixedString }
func (f FixedString) Rule() MatchRule  { return f.rule }

// LetterSequence is an ordered run of uppercase letters.
type LetterSequence struct {
	letters []rune
}

// NewLetterSequence builds a letter answer from word. Whitespace is dropped
// and letters are uppercased.
func NewLetterSequence(word string) LetterSequence {
	return LetterSequence{letters: Letters(word)}
}

// Letters turns raw input into the uppercase letter runes used for scoring.
func Letters(s string) []rune {
	var out []rune
	for _, r := range Normalize(s) {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, unicode.ToUpper(r))
	}
	return out
}

// Len is the number of letters a guess must have.
func (l LetterSequence) Len() int { return len(l.letters) }

func (l LetterSequence) Evaluate(guess string) (Evaluation, error) {
	v, err := Score(l.letters, Letters(guess))
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Match: allCorrect(v), Verdicts: v}, nil
}

func (l LetterSequence) Primary() string  { return string(l.letters) }
func (l LetterSequence) Kind() AnswerKind { return KindLetterSequence }

// IndexedItem is a title whose reveal pool is a fixed number of items, such
// as the tiles of a poster grid. Guesses match by containment.
type IndexedItem struct {
	FixedString
	count int
}

// NewIndexedItem builds a title answer backed by count items.
func NewIndexedItem(title string, count int) IndexedItem {
	return IndexedItem{FixedString: NewFixedString(title, MatchContains), count: count}
}

// Count is the number of items (tiles) behind the answer.
func (i IndexedItem) Count() int { return i.count }

func (i IndexedItem) Kind() AnswerKind { return KindIndexedItem }
