package content

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/game"
)

// MaxRound is the highest round index Start accepts for a day.
const MaxRound = 999

// Round is one playable instance of a mode's puzzle.
type Round struct {
	Mode    *Mode
	Puzzle  Puzzle
	Date    time.Time
	Number  int // puzzle number for the date
	Index   int // round index within the day: 0 is the daily puzzle
	Session *game.Session[Unit]

	slot int // index of Puzzle in Mode.Puzzles
}

// Daily reports whether this is the day's first round (the one that counts
// for the daily leaderboard).
func (r *Round) Daily() bool { return r.Index == 0 }

// Start builds round index of mode for date.
func (c *Catalog) Start(modeID string, date time.Time, index int) (*Round, error) {
	m, err := c.Mode(modeID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > MaxRound {
		return nil, fmt.Errorf("%w: %d", ErrBadRound, index)
	}
	slot := c.slot(m, date, index)
	p, pool := c.pick(m, date, index, slot)
	sess, err := game.NewSession(answerFor(m, p), m.Budget, pool, m.RevealPolicy())
	if err != nil {
		return nil, err
	}
	return &Round{
		Mode:    m,
		Puzzle:  p,
		Date:    date.UTC(),
		Number:  c.Number(date),
		Index:   index,
		Session: sess,
		slot:    slot,
	}, nil
}

// Again is "play again": a fresh session on the next round's puzzle with the
// same budget and policy. The next puzzle always differs from prev's when the
// mode has more than one. The previous round is left as it was.
func (c *Catalog) Again(prev *Round) (*Round, error) {
	next := prev.Index + 1
	slot := c.step(prev.Mode, prev.Date, next, prev.slot)
	p, pool := c.pick(prev.Mode, prev.Date, next, slot)
	sess, err := prev.Session.Reset(answerFor(prev.Mode, p), pool)
	if err != nil {
		return nil, err
	}
	return &Round{
		Mode:    prev.Mode,
		Puzzle:  p,
		Date:    prev.Date,
		Number:  prev.Number,
		Index:   next,
		Session: sess,
		slot:    slot,
	}, nil
}

// slot returns the puzzle index of round index: round 0 is the daily pick,
// each later round steps away from the one before it.
func (c *Catalog) slot(m *Mode, date time.Time, index int) int {
	i := daily.PuzzleIndex(date, c.salt, m.ID, 0, len(m.Puzzles))
	for k := 1; k <= index; k++ {
		i = c.step(m, date, k, i)
	}
	return i
}

// step moves from puzzle prev to a different puzzle for round k, by a seeded
// offset in [1, n-1].
func (c *Catalog) step(m *Mode, date time.Time, k, prev int) int {
	n := len(m.Puzzles)
	if n < 2 {
		return 0
	}
	return (prev + 1 + daily.PuzzleIndex(date, c.salt, m.ID, k, n-1)) % n
}

// pick returns puzzle slot of m and builds its reveal pool for round index.
func (c *Catalog) pick(m *Mode, date time.Time, index, slot int) (Puzzle, []Unit) {
	p := m.Puzzles[slot]
	if m.Answer == "indexed" {
		return p, tilePool(m.Tiles, daily.Seed(date, c.salt, m.ID+"/tiles", index))
	}
	pool := lo.Map(p.Clues, func(u Unit, n int) Unit {
		if u.ID == "" {
			u.ID = u.Kind + "-" + strconv.Itoa(n)
		}
		return u
	})
	return p, pool
}

// tilePool returns every tile index exactly once in a seeded order.
func tilePool(n int, seed uint64) []Unit {
	order := lo.Range(n)
	r := rand.New(rand.NewPCG(seed, seed>>1|1))
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return lo.Map(order, func(t int, _ int) Unit {
		v := strconv.Itoa(t)
		return Unit{ID: "tile-" + v, Kind: "tile", Value: v}
	})
}

func answerFor(m *Mode, p Puzzle) game.Answer {
	switch m.Answer {
	case "letters":
		return game.NewLetterSequence(p.Answer)
	case "indexed":
		return game.NewIndexedItem(p.Answer, m.Tiles)
	default:
		return game.NewFixedString(p.Answer, game.ParseMatchRule(m.Match))
	}
}
