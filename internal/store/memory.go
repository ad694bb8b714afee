// internal/store/memory.go
//
// In-memory store of live rounds.
// Each HTTP request that touches a round takes the round's own lock, so a
// session is only ever mutated by one goroutine at a time (a guess, a reveal
// request or a countdown expiry).
//
// Characteristics:
//   - Rounds are keyed by a random UUID handed to the client.
//   - The map itself is guarded by an RWMutex.
//   - State is lost when the process restarts; idle rounds are swept.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/flickle/internal/clock"
	"github.com/robalobadob/flickle/internal/content"
)

// ErrNotFound is returned for unknown or swept round IDs.
var ErrNotFound = errors.New("not found")

// Entry is a live round plus the bookkeeping around it.
type Entry struct {
	sync.Mutex

	ID       string
	PlayerID string
	Guest    bool // PlayerID is an anonymous cookie, not an account
	Round    *content.Round
	Started  time.Time
	Clock    *clock.Countdown // nil for untimed modes
	Recorded bool             // terminal result handed to stats
	Dropped  bool             // deleted or swept; a late expiry must not record it

	touched time.Time
}

// NewEntry wraps a round for playerID under a fresh ID.
func NewEntry(playerID string, guest bool, r *content.Round) *Entry {
	now := time.Now()
	return &Entry{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Guest:    guest,
		Round:    r,
		Started:  now,
		touched:  now,
	}
}

// Touch marks the entry as used now. Callers hold the entry lock.
func (e *Entry) Touch() { e.touched = time.Now() }

// Store defines the persistence interface for live rounds.
type Store interface {
	// Save adds or replaces an entry.
	Save(ctx context.Context, e *Entry) error

	// Get retrieves an entry by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Delete drops an entry and stops its countdown.
	Delete(ctx context.Context, id string) error

	// Sweep drops entries idle since before cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{entries: make(map[string]*Entry)}
}

func (m *memory) Save(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	stopClock(e)
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	var stale []*Entry
	for id, e := range m.entries {
		e.Lock()
		idle := e.touched.Before(cutoff)
		e.Unlock()
		if idle {
			stale = append(stale, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()
	for _, e := range stale {
		stopClock(e)
	}
	return len(stale)
}

func stopClock(e *Entry) {
	e.Lock()
	defer e.Unlock()
	e.Dropped = true
	if e.Clock != nil {
		e.Clock.Stop()
	}
}
