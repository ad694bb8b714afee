package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Memory keeps stats in process memory, keyed by (anonymous) player ID.
type Memory struct {
	mu      sync.Mutex
	stats   map[string]Stats
	names   map[string]string
	tallies map[string]map[tallyKey]int
}

type tallyKey struct {
	mode    string
	won     bool
	guesses int
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		stats:   map[string]Stats{},
		names:   map[string]string{},
		tallies: map[string]map[tallyKey]int{},
	}
}

func (m *Memory) Register(ctx context.Context, playerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[playerID] = name
	return nil
}

func (m *Memory) Get(ctx context.Context, playerID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[playerID], nil
}

func (m *Memory) Record(ctx context.Context, playerID string, g Game) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats[playerID].Record(g.Won)
	m.stats[playerID] = s
	if m.tallies[playerID] == nil {
		m.tallies[playerID] = map[tallyKey]int{}
	}
	m.tallies[playerID][tallyKey{mode: g.Mode, won: g.Won, guesses: g.Guesses}]++
	return s, nil
}

func (m *Memory) Modes(ctx context.Context, playerID string) ([]ModeStats, error) {
	m.mu.Lock()
	tallies := lo.MapToSlice(m.tallies[playerID], func(k tallyKey, n int) Tally {
		return Tally{Mode: k.mode, Won: k.won, Guesses: k.guesses, Count: n}
	})
	m.mu.Unlock()
	return Summarize(tallies), nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	out := lo.MapToSlice(m.stats, func(id string, s Stats) Entry {
		name := m.names[id]
		if name == "" {
			name = "guest"
		}
		return Entry{PlayerID: id, Name: name, View: s.View()}
	})
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		return a.PlayerID < b.PlayerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
