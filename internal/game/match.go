// internal/game/match.go
//
// Letter scoring for the letter-guessing mode and the keyboard-hint fold.
//
// Score uses the positional two-pass algorithm:
//   Pass 1: mark exact matches Correct and consume those answer positions.
//   Pass 2: for every other guess letter, consume the first unused answer
//           position (left to right) holding the same letter → Partial.
// Anything left over stays Absent. Correct positions are resolved before any
// Partial, so a later exact match is never displaced by an earlier partial.

package game

import "sort"

// Score compares guess against answer letter by letter.
// Both slices must have the same length; otherwise ErrInvalidGuessLength.
func Score(answer, guess []rune) ([]Verdict, error) {
	n := len(answer)
	if len(guess) != n {
		return nil, ErrInvalidGuessLength
	}
	res := make([]Verdict, n) // zero value is Absent
	used := make([]bool, n)

	// First pass: exact positions.
	for i := 0; i < n; i++ {
		if guess[i] == answer[i] {
			res[i] = Correct
			used[i] = true
		}
	}

	// Second pass: first unused occurrence elsewhere in the answer.
	for i := 0; i < n; i++ {
		if res[i] == Correct {
			continue
		}
		for j := 0; j < n; j++ {
			if !used[j] && answer[j] == guess[i] {
				res[i] = Partial
				used[j] = true
				break
			}
		}
	}
	return res, nil
}

// allCorrect reports whether every verdict is Correct.
func allCorrect(v []Verdict) bool {
	for _, x := range v {
		if x != Correct {
			return false
		}
	}
	return len(v) > 0
}

// KeyHints is the best verdict seen so far for every guessed letter.
// A letter only ever moves up: Absent → Partial → Correct.
type KeyHints map[rune]Verdict

// Fold merges one scored guess into the hints.
func (k KeyHints) Fold(guess []rune, verdicts []Verdict) {
	for i, r := range guess {
		if i >= len(verdicts) {
			return
		}
		next := verdicts[i]
		cur, seen := k[r]
		if !seen || next == Correct || (next == Partial && cur == Absent) {
			k[r] = next
		}
	}
}

// Get returns the stored verdict for r and whether r has been guessed.
func (k KeyHints) Get(r rune) (Verdict, bool) {
	v, ok := k[r]
	return v, ok
}

// Snapshot returns a copy keyed by letter string, ready for JSON.
func (k KeyHints) Snapshot() map[string]Verdict {
	out := make(map[string]Verdict, len(k))
	for r, v := range k {
		out[string(r)] = v
	}
	return out
}

// Letters returns the guessed letters in alphabetical order.
func (k KeyHints) Letters() []rune {
	out := make([]rune, 0, len(k))
	for r := range k {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
