// Package stats is the play-count / win / streak collaborator.
//
// A finished round hands over a Game (mode, won, guesses); the counters and
// the per-mode guess distribution are updated here and persisted by a
// Repository: Memory for guests, SQLite for accounts on the local database,
// Postgres for the hosted database.
package stats

import (
	"context"
	"math"
	"sort"
)

// Game is what a finished round hands over.
type Game struct {
	Mode         string
	Won          bool
	Guesses      int // accepted guesses, the winning one included
	AttemptsUsed int // wrong guesses
}

// Stats are a player's running totals.
type Stats struct {
	GamesPlayed   int `json:"gamesPlayed"`
	GamesWon      int `json:"gamesWon"`
	CurrentStreak int `json:"currentStreak"`
	MaxStreak     int `json:"maxStreak"`
}

// Record applies one finished game: a win extends the streak, a loss resets it.
func (s Stats) Record(won bool) Stats {
	s.GamesPlayed++
	if won {
		s.GamesWon++
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 0
	}
	s.MaxStreak = max(s.MaxStreak, s.CurrentStreak)
	return s
}

// WinRate is the rounded win percentage, 0 before the first game.
func (s Stats) WinRate() int {
	if s.GamesPlayed == 0 {
		return 0
	}
	return int(math.Round(float64(s.GamesWon) * 100 / float64(s.GamesPlayed)))
}

// View is Stats plus the derived win rate, as served to clients.
type View struct {
	Stats
	WinRate int `json:"winRate"`
}

// View returns s with its win rate.
func (s Stats) View() View { return View{Stats: s, WinRate: s.WinRate()} }

// Entry is one leaderboard line.
type Entry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	View
}

// ModeStats are a player's totals for one mode.
type ModeStats struct {
	Mode       string  `json:"mode"`
	Played     int     `json:"played"`
	Won        int     `json:"won"`
	AvgGuesses float64 `json:"avgGuesses"` // over won games
	// Distribution[i] is the number of games won in i+1 guesses.
	Distribution []int `json:"distribution"`
}

// Tally is count games of one mode that ended the same way.
type Tally struct {
	Mode    string
	Won     bool
	Guesses int
	Count   int
}

// add folds a tally into m.
func (m *ModeStats) add(t Tally) {
	m.Played += t.Count
	if !t.Won || t.Guesses < 1 {
		return
	}
	sum := m.AvgGuesses*float64(m.Won) + float64(t.Guesses*t.Count)
	m.Won += t.Count
	m.AvgGuesses = sum / float64(m.Won)
	for len(m.Distribution) < t.Guesses {
		m.Distribution = append(m.Distribution, 0)
	}
	m.Distribution[t.Guesses-1] += t.Count
}

// Pad extends the distribution to n buckets, one per allowed guess.
func (m ModeStats) Pad(n int) ModeStats {
	if len(m.Distribution) >= n {
		return m
	}
	d := make([]int, n)
	copy(d, m.Distribution)
	m.Distribution = d
	return m
}

// Summarize folds tallies into per-mode stats ordered by mode.
func Summarize(tallies []Tally) []ModeStats {
	byMode := map[string]*ModeStats{}
	for _, t := range tallies {
		m, ok := byMode[t.Mode]
		if !ok {
			m = &ModeStats{Mode: t.Mode, Distribution: []int{}}
			byMode[t.Mode] = m
		}
		m.add(t)
	}
	out := make([]ModeStats, 0, len(byMode))
	for _, m := range byMode {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}

// Repository persists stats.
type Repository interface {
	// Register makes a player known under a display name.
	Register(ctx context.Context, playerID, name string) error
	// Get returns the player's stats, zero for an unseen player.
	Get(ctx context.Context, playerID string) (Stats, error)
	// Record applies one finished game and returns the new totals.
	Record(ctx context.Context, playerID string, g Game) (Stats, error)
	// Modes returns the player's per-mode stats ordered by mode.
	Modes(ctx context.Context, playerID string) ([]ModeStats, error)
	// Leaderboard ranks players by win rate, then wins.
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
}
