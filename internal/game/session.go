// internal/game/session.go
//
// Session is the attempt-budget + progressive-disclosure state machine every
// mode instantiates. Responsibilities:
//   - Validate the shape of a submission (non-empty, letter count).
//   - Evaluate it against the Answer (win check first).
//   - Count wrong guesses against the attempt budget.
//   - Reveal units from a finite pool according to the reveal policy.
//   - Track state transitions: pending → won/lost, exactly once.
//
// Notes:
//   - The pool is revealed strictly in order, so the revealed units are
//     always a prefix of the pool and nothing is revealed twice.
//   - A session is not safe for concurrent use; callers serialise access.

package game

// Session tracks one player's progress on one puzzle.
type Session[T any] struct {
	answer  Answer
	budget  int
	policy  Policy
	pool    []T
	shown   int // revealed units: pool[:shown]
	used    int // wrong guesses
	guesses int // accepted submissions, winning one included
	outcome Outcome
	rows    [][]Verdict
	keys    KeyHints
}

// Result is what a single accepted submission produced.
type Result[T any] struct {
	Outcome           Outcome
	Won               bool
	Verdicts          []Verdict
	AttemptsRemaining int
	NewlyRevealed     []T
}

// Summary is the terminal hand-off for stats and sharing.
type Summary struct {
	Outcome      Outcome `json:"outcome"`
	Won          bool    `json:"won"`
	AttemptsUsed int     `json:"attemptsUsed"`
	Guesses      int     `json:"guesses"`
}

// NewSession constructs a pending session.
// The pool is copied; the policy's initial units are revealed immediately.
func NewSession[T any](answer Answer, budget int, pool []T, policy Policy) (*Session[T], error) {
	if budget < 1 {
		return nil, ErrInvalidBudget
	}
	s := &Session[T]{
		answer: answer,
		budget: budget,
		policy: policy,
		pool:   append([]T(nil), pool...),
		keys:   KeyHints{},
	}
	s.reveal(policy.Initial)
	return s, nil
}

// Submit validates, evaluates and applies one guess.
// On error the session is unchanged.
func (s *Session[T]) Submit(raw string) (Result[T], error) {
	if s.outcome.Terminal() {
		return Result[T]{}, ErrSessionOver
	}
	guess := Normalize(raw)
	if guess == "" {
		return Result[T]{}, ErrEmptyGuess
	}
	ev, err := s.answer.Evaluate(guess)
	if err != nil {
		return Result[T]{}, err
	}

	s.guesses++
	if ev.Verdicts != nil {
		s.rows = append(s.rows, ev.Verdicts)
		s.keys.Fold(Letters(guess), ev.Verdicts)
	}

	res := Result[T]{Verdicts: ev.Verdicts}
	if ev.Match {
		s.outcome = Won
	} else {
		s.used++
		if s.used >= s.budget {
			s.outcome = Lost
		} else if s.policy.Kind == RevealOnWrongGuess {
			res.NewlyRevealed = s.reveal(s.policy.Step)
		}
	}
	res.Outcome = s.outcome
	res.Won = s.outcome == Won
	res.AttemptsRemaining = s.AttemptsRemaining()
	return res, nil
}

// Reveal shows one more unit for on-demand sessions.
func (s *Session[T]) Reveal() (T, error) {
	var zero T
	if s.outcome.Terminal() {
		return zero, ErrSessionOver
	}
	if s.policy.Kind != RevealOnDemand {
		return zero, ErrRevealNotAllowed
	}
	if s.shown >= s.policy.Cap {
		return zero, ErrNoReveals
	}
	got := s.reveal(1)
	if len(got) == 0 {
		return zero, ErrNoReveals
	}
	return got[0], nil
}

// Expire ends a pending session as lost. It reports whether a transition
// happened; calling it on a terminal session does nothing.
func (s *Session[T]) Expire() bool {
	if s.outcome.Terminal() {
		return false
	}
	s.outcome = Lost
	return true
}

// Reset returns a fresh pending session for a new answer and pool, keeping
// this session's budget and policy. The receiver is not modified.
func (s *Session[T]) Reset(answer Answer, pool []T) (*Session[T], error) {
	return NewSession(answer, s.budget, pool, s.policy)
}

// reveal moves up to n units from the pool into view and returns them.
func (s *Session[T]) reveal(n int) []T {
	end := min(s.shown+n, len(s.pool))
	if end <= s.shown {
		return nil
	}
	out := append([]T(nil), s.pool[s.shown:end]...)
	s.shown = end
	return out
}

func (s *Session[T]) Answer() Answer    { return s.answer }
func (s *Session[T]) Policy() Policy    { return s.policy }
func (s *Session[T]) Budget() int       { return s.budget }
func (s *Session[T]) Outcome() Outcome  { return s.outcome }
func (s *Session[T]) Terminal() bool    { return s.outcome.Terminal() }
func (s *Session[T]) AttemptsUsed() int { return s.used }
func (s *Session[T]) Guesses() int      { return s.guesses }

// AttemptsRemaining is the number of wrong guesses still allowed.
func (s *Session[T]) AttemptsRemaining() int {
	return max(s.budget-s.used, 0)
}

// Revealed returns a copy of the units revealed so far, in reveal order.
func (s *Session[T]) Revealed() []T {
	return append([]T(nil), s.pool[:s.shown]...)
}

// Hidden is the number of units that can still be revealed: the rest of the
// pool, bounded by the cap for on-demand sessions.
func (s *Session[T]) Hidden() int {
	limit := len(s.pool)
	if s.policy.Kind == RevealOnDemand {
		limit = min(limit, s.policy.Cap)
	}
	return max(limit-s.shown, 0)
}

// Rows returns a copy of the verdict rows of a letter session.
func (s *Session[T]) Rows() [][]Verdict {
	out := make([][]Verdict, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]Verdict(nil), r...)
	}
	return out
}

// KeyHints returns a copy of the keyboard hints of a letter session.
func (s *Session[T]) KeyHints() KeyHints {
	out := make(KeyHints, len(s.keys))
	for r, v := range s.keys {
		out[r] = v
	}
	return out
}

// Summary reports the hand-off tuple for stats and sharing.
func (s *Session[T]) Summary() Summary {
	return Summary{
		Outcome:      s.outcome,
		Won:          s.outcome == Won,
		AttemptsUsed: s.used,
		Guesses:      s.guesses,
	}
}
