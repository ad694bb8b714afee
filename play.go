// play.go
//
// `flickle play` runs one round on stdin/stdout with the same engine,
// catalogue and share text as the server. Results are not persisted.
//
// Input lines are guesses; on on-demand modes "?" reveals one more unit.
// Timed modes run a countdown that ends the round as lost.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/robalobadob/flickle/internal/clock"
	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/game"
	"github.com/robalobadob/flickle/internal/share"
)

const revealCommand = "?"

func runPlay(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	date := time.Now().UTC()
	if cfg.date != "" {
		if date, err = daily.ParseDateKey(cfg.date); err != nil {
			return err
		}
	}
	rd, err := cat.Start(cfg.mode, date, cfg.round)
	if err != nil {
		return err
	}
	sess := rd.Session

	printIntro(out, rd)
	var mu sync.Mutex // guards sess against the countdown
	if limit := rd.Mode.TimeLimit(); limit > 0 {
		fmt.Fprintf(out, "⏱  %s on the clock.\n", limit)
		cd := clock.Start(limit, func() {
			mu.Lock()
			defer mu.Unlock()
			if sess.Expire() {
				fmt.Fprintln(out, "\n⏰ Time's up! Press enter.")
			}
		})
		defer cd.Stop()
	}

	lines := bufio.NewScanner(in)
	for {
		mu.Lock()
		over := sess.Terminal()
		if !over {
			fmt.Fprint(out, "> ")
		}
		mu.Unlock()
		if over || ctx.Err() != nil {
			break
		}
		if !lines.Scan() {
			break
		}
		line := strings.TrimSpace(lines.Text())

		mu.Lock()
		err := step(out, sess, line)
		mu.Unlock()
		if err != nil {
			return err
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if !sess.Terminal() {
		return nil // input closed mid-round
	}
	if sess.Outcome() == game.Won {
		fmt.Fprintln(out, "🎉 You got it!")
	} else {
		fmt.Fprintf(out, "The answer was %s.\n", rd.Puzzle.Answer)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, share.Text(rd.Mode.Title, rd.Number, sess.Summary(), sess.Budget(), sess.Rows()))
	return nil
}

// step applies one input line. Callers hold the session lock.
func step(out io.Writer, sess *game.Session[content.Unit], line string) error {
	if line == revealCommand {
		u, err := sess.Reveal()
		switch {
		case err == nil:
			printUnits(out, u)
		case errors.Is(err, game.ErrNoReveals):
			fmt.Fprintln(out, "Nothing left to reveal.")
		case errors.Is(err, game.ErrRevealNotAllowed):
			fmt.Fprintln(out, "Clues in this mode come with wrong guesses.")
		}
		return nil
	}

	res, err := sess.Submit(line)
	switch {
	case errors.Is(err, game.ErrEmptyGuess), errors.Is(err, game.ErrSessionOver):
		return nil
	case errors.Is(err, game.ErrInvalidGuessLength):
		fmt.Fprintf(out, "Guesses need %d letters.\n", len(game.Letters(sess.Answer().Primary())))
		return nil
	case err != nil:
		return err
	}

	if res.Verdicts != nil {
		fmt.Fprintln(out, share.Grid([][]game.Verdict{res.Verdicts}))
	}
	if !res.Outcome.Terminal() {
		fmt.Fprintf(out, "Not quite. %d left.\n", res.AttemptsRemaining)
	}
	printUnits(out, res.NewlyRevealed...)
	return nil
}

func printIntro(out io.Writer, rd *content.Round) {
	fmt.Fprintf(out, "🎬 %s #%d: %s\n", rd.Mode.Title, rd.Number, rd.Mode.Blurb)
	if rd.Puzzle.Prompt != "" {
		fmt.Fprintf(out, "  %q\n", rd.Puzzle.Prompt)
	}
	if rd.Puzzle.Caption != "" {
		fmt.Fprintf(out, "  %s\n", rd.Puzzle.Caption)
	}
	if ls, ok := rd.Session.Answer().(game.LetterSequence); ok {
		fmt.Fprintf(out, "  %d letters, %d guesses.\n", ls.Len(), rd.Session.Budget())
	} else {
		fmt.Fprintf(out, "  %d guesses.\n", rd.Session.Budget())
	}
	if rd.Session.Policy().Kind == game.RevealOnDemand {
		fmt.Fprintf(out, "  Type %s for another clue.\n", revealCommand)
	}
	printUnits(out, rd.Session.Revealed()...)
}

func printUnits(out io.Writer, units ...content.Unit) {
	for _, u := range units {
		fmt.Fprintf(out, "  💡 %s: %s\n", u.Kind, u.Value)
	}
}

func runModes(cfg *Config, out io.Writer) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tANSWER\tBUDGET\tREVEALS\tTIME")
	for _, m := range cat.Modes {
		limit := "-"
		if d := m.TimeLimit(); d > 0 {
			limit = d.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", m.ID, m.Title, m.Answer, m.Budget, m.RevealPolicy().Kind, limit)
	}
	return tw.Flush()
}
