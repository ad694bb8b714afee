// internal/content/catalog.go
//
// The daily content provider.
// Responsibilities:
//   - Load the puzzle catalogue (embedded JSON by default, or a file).
//   - Describe each mode: answer variant, match rule, budget, reveal policy,
//     optional time limit.
//   - Pick today's puzzle deterministically (see daily.PuzzleIndex) and
//     build the session for it.
//
// Notes:
//   - Every mode instantiates the same game.Session[Unit]; a mode only
//     contributes its Answer variant, pool and policy.
//   - Poster tiles are shuffled with a PCG seeded from the daily seed, so the
//     tile order is the same for every player on a given day.

package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/robalobadob/flickle/assets"
	"github.com/robalobadob/flickle/internal/clock"
	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/game"
)

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrInvalid     = errors.New("invalid catalogue")
	ErrBadRound    = errors.New("round out of range")
)

// Unit is one revealable clue, hint, blur level or poster tile.
type Unit struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Puzzle is one day's content for a mode.
type Puzzle struct {
	Answer  string `json:"answer"`
	Prompt  string `json:"prompt,omitempty"`
	Caption string `json:"caption,omitempty"`
	Media   string `json:"media,omitempty"`
	Clues   []Unit `json:"clues,omitempty"`
}

// PolicySpec is the catalogue form of a reveal policy.
type PolicySpec struct {
	Kind    string `json:"kind"`
	Step    int    `json:"step"`
	Cap     int    `json:"cap"`
	Initial int    `json:"initial"`
}

// Mode describes one mini-game.
type Mode struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Blurb      string     `json:"blurb"`
	Answer     string     `json:"answer"` // "letters" | "fixed" | "indexed"
	Match      string     `json:"match"`
	Budget     int        `json:"budget"`
	Tiles      int        `json:"tiles,omitempty"`
	Difficulty string     `json:"difficulty,omitempty"`
	Policy     PolicySpec `json:"policy"`
	Puzzles    []Puzzle   `json:"puzzles"`
}

// TimeLimit is the countdown for the mode, zero when untimed.
func (m *Mode) TimeLimit() time.Duration {
	return clock.Limit(clock.Difficulty(m.Difficulty))
}

// RevealPolicy converts the catalogue policy.
func (m *Mode) RevealPolicy() game.Policy {
	return game.ParsePolicy(m.Policy.Kind, m.Policy.Step, m.Policy.Cap, m.Policy.Initial)
}

// Catalog is the full set of modes plus the launch day used for numbering.
type Catalog struct {
	Launch string  `json:"launch"`
	Modes  []*Mode `json:"modes"`

	salt   string
	launch time.Time
	byID   map[string]*Mode
}

// Load parses and validates a catalogue.
func Load(r io.Reader, salt string) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if err := c.index(salt); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads a catalogue from path.
func LoadFile(path, salt string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, salt)
}

// Default loads the embedded catalogue.
func Default(salt string) (*Catalog, error) {
	b, err := assets.Puzzles()
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(b), salt)
}

func (c *Catalog) index(salt string) error {
	launch, err := daily.ParseDateKey(c.Launch)
	if err != nil {
		return fmt.Errorf("%w: launch %q: %v", ErrInvalid, c.Launch, err)
	}
	c.launch = launch
	c.salt = salt
	c.byID = make(map[string]*Mode, len(c.Modes))
	for _, m := range c.Modes {
		if err := m.validate(); err != nil {
			return err
		}
		if _, dup := c.byID[m.ID]; dup {
			return fmt.Errorf("%w: duplicate mode %q", ErrInvalid, m.ID)
		}
		c.byID[m.ID] = m
	}
	return nil
}

func (m *Mode) validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: mode without id", ErrInvalid)
	case m.Budget < 1:
		return fmt.Errorf("%w: mode %q: budget must be at least 1", ErrInvalid, m.ID)
	case len(m.Puzzles) == 0:
		return fmt.Errorf("%w: mode %q has no puzzles", ErrInvalid, m.ID)
	case m.Answer != "letters" && m.Answer != "fixed" && m.Answer != "indexed":
		return fmt.Errorf("%w: mode %q: unknown answer %q", ErrInvalid, m.ID, m.Answer)
	case m.Answer == "indexed" && m.Tiles < 1:
		return fmt.Errorf("%w: mode %q needs tiles", ErrInvalid, m.ID)
	case m.Match != "" && m.Match != "exact" && m.Match != "contains" && m.Match != "either":
		return fmt.Errorf("%w: mode %q: unknown match %q", ErrInvalid, m.ID, m.Match)
	case m.Difficulty != "" && clock.Limit(clock.Difficulty(m.Difficulty)) == 0:
		return fmt.Errorf("%w: mode %q: unknown difficulty %q", ErrInvalid, m.ID, m.Difficulty)
	}
	if err := m.Policy.validate(); err != nil {
		return fmt.Errorf("%w: mode %q: %v", ErrInvalid, m.ID, err)
	}
	for i, p := range m.Puzzles {
		if game.Normalize(p.Answer) == "" {
			return fmt.Errorf("%w: mode %q puzzle %d has no answer", ErrInvalid, m.ID, i)
		}
	}
	return nil
}

func (p PolicySpec) validate() error {
	if p.Step < 0 || p.Cap < 0 || p.Initial < 0 {
		return errors.New("negative policy value")
	}
	switch p.Kind {
	case "on_wrong_guess", "time_driven":
		return nil
	case "on_demand":
		if p.Cap <= p.Initial {
			return fmt.Errorf("on_demand cap %d leaves nothing to reveal after %d initial", p.Cap, p.Initial)
		}
		return nil
	}
	return fmt.Errorf("unknown policy %q", p.Kind)
}

// Mode returns the mode with id.
func (c *Catalog) Mode(id string) (*Mode, error) {
	m, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, id)
	}
	return m, nil
}

// IDs lists the mode ids in catalogue order.
func (c *Catalog) IDs() []string {
	return lo.Map(c.Modes, func(m *Mode, _ int) string { return m.ID })
}

// Number is the puzzle number shown for date ("Flickle #142").
func (c *Catalog) Number(date time.Time) int {
	return daily.PuzzleNumber(date, c.launch)
}
