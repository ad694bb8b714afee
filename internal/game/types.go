// internal/game/types.go
//
// Core type definitions for the guess-evaluation engine.
// Defines:
//   - Verdict: per-letter result of a guess (correct/partial/absent).
//   - Outcome: lifecycle of a session (pending → won | lost).
//   - Evaluation: what an Answer reports back for one normalised guess.

package game

import (
	"encoding/json"
	"fmt"
)

// Verdict represents the evaluation result for a single letter in a guess.
// Values are ordered: a larger Verdict is a better one, which is what the
// keyboard-hint fold relies on.
//   - Absent:  letter does not occur (or all occurrences are accounted for).
//   - Partial: letter occurs in the answer at a different position.
//   - Correct: letter is in the correct position.
type Verdict int

const (
	Absent Verdict = iota
	Partial
	Correct
)

// String returns the wire name of the verdict.
func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Partial:
		return "partial"
	default:
		return "absent"
	}
}

// MarshalJSON encodes a verdict as its wire name.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a verdict from its wire name.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "correct":
		*v = Correct
	case "partial":
		*v = Partial
	case "absent":
		*v = Absent
	default:
		return fmt.Errorf("game: unknown verdict %q", s)
	}
	return nil
}

// Outcome is the coarse state of a session.
type Outcome int

const (
	Pending Outcome = iota
	Won
	Lost
)

// String reports "pending", "won" or "lost".
func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "pending"
	}
}

// MarshalJSON encodes an outcome as its string form.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an outcome from its string form.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "pending":
		*o = Pending
	case "won":
		*o = Won
	case "lost":
		*o = Lost
	default:
		return fmt.Errorf("game: unknown outcome %q", s)
	}
	return nil
}

// Terminal reports whether no further mutation is permitted.
func (o Outcome) Terminal() bool { return o != Pending }

// Evaluation is the result of comparing one normalised guess with an Answer.
// Verdicts is only populated by letter answers.
type Evaluation struct {
	Match    bool
	Verdicts []Verdict
}
