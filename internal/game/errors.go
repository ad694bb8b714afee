package game

import "errors"

// Every error below is a rejected operation: the session is left untouched.
var (
	// ErrEmptyGuess is returned for blank or whitespace-only submissions.
	ErrEmptyGuess = errors.New("empty guess")

	// ErrInvalidGuessLength is returned when a letter guess does not have
	// exactly as many letters as the answer.
	ErrInvalidGuessLength = errors.New("invalid guess length")

	// ErrSessionOver is returned when submitting to a session that is
	// already won or lost.
	ErrSessionOver = errors.New("session over")

	// ErrNoReveals is returned when the reveal cap or pool is exhausted.
	ErrNoReveals = errors.New("no reveals left")

	// ErrRevealNotAllowed is returned when the session's policy does not
	// reveal on demand.
	ErrRevealNotAllowed = errors.New("reveal not allowed")

	// ErrInvalidBudget is returned for attempt budgets below one.
	ErrInvalidBudget = errors.New("attempt budget must be at least 1")
)
