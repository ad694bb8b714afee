package stats_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/flickle/assets"
	"github.com/robalobadob/flickle/internal/stats"
	"github.com/robalobadob/flickle/internal/store"
)

func TestStats_Record(t *testing.T) {
	var s stats.Stats
	for _, won := range []bool{true, true, true, false, true} {
		s = s.Record(won)
	}
	assert.Equal(t, stats.Stats{GamesPlayed: 5, GamesWon: 4, CurrentStreak: 1, MaxStreak: 3}, s)
	assert.Equal(t, 80, s.WinRate())
	assert.Zero(t, stats.Stats{}.WinRate())
	assert.Equal(t, 67, stats.Stats{GamesPlayed: 3, GamesWon: 2}.WinRate())
}

func win(mode string, guesses int) stats.Game {
	return stats.Game{Mode: mode, Won: true, Guesses: guesses, AttemptsUsed: guesses - 1}
}

func loss(mode string, budget int) stats.Game {
	return stats.Game{Mode: mode, Guesses: budget, AttemptsUsed: budget}
}

func TestSummarize_Distribution(t *testing.T) {
	modes := stats.Summarize([]stats.Tally{
		{Mode: "quote-quest", Won: true, Guesses: 1, Count: 1},
		{Mode: "flickle", Won: true, Guesses: 4, Count: 1},
		{Mode: "flickle", Won: true, Guesses: 2, Count: 2},
		{Mode: "flickle", Won: false, Guesses: 6, Count: 1},
	})
	require.Len(t, modes, 2)

	f := modes[0]
	assert.Equal(t, "flickle", f.Mode)
	assert.Equal(t, 4, f.Played)
	assert.Equal(t, 3, f.Won)
	assert.InDelta(t, 8.0/3, f.AvgGuesses, 1e-9)
	assert.Equal(t, []int{0, 2, 0, 1}, f.Distribution, "losses are not in the distribution")
	assert.Equal(t, []int{0, 2, 0, 1, 0, 0}, f.Pad(6).Distribution)
	assert.Equal(t, []int{0, 2, 0, 1}, f.Pad(3).Distribution)

	q := modes[1]
	assert.Equal(t, "quote-quest", q.Mode)
	assert.Equal(t, []int{1}, q.Distribution)
	assert.InDelta(t, 1.0, q.AvgGuesses, 1e-9)
}

func TestSummarize_OnlyLosses(t *testing.T) {
	modes := stats.Summarize([]stats.Tally{{Mode: "casting-web", Guesses: 3, Count: 2}})
	require.Len(t, modes, 1)
	assert.Equal(t, 2, modes[0].Played)
	assert.Zero(t, modes[0].Won)
	assert.Zero(t, modes[0].AvgGuesses)
	assert.Equal(t, []int{}, modes[0].Distribution)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := stats.NewMemory()

	got, err := m.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, got)

	require.NoError(t, m.Register(ctx, "a", "alice"))
	_, _ = m.Record(ctx, "a", win("flickle", 3))
	_, _ = m.Record(ctx, "a", loss("flickle", 6))
	_, _ = m.Record(ctx, "b", win("flickle", 2))
	s, err := m.Record(ctx, "b", win("quote-quest", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentStreak)

	modes, err := m.Modes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, modes, 1)
	assert.Equal(t, stats.ModeStats{Mode: "flickle", Played: 2, Won: 1, AvgGuesses: 3, Distribution: []int{0, 0, 1}}, modes[0])

	modes, err = m.Modes(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, modes)

	board, err := m.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "b", board[0].PlayerID)
	assert.Equal(t, "guest", board[0].Name)
	assert.Equal(t, 100, board[0].WinRate)
	assert.Equal(t, "alice", board[1].Name)
	assert.Equal(t, 50, board[1].WinRate)

	board, _ = m.Leaderboard(ctx, 1)
	assert.Len(t, board, 1)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db, assets.SQLiteMigrations()))
	for _, u := range [][2]string{{"u1", "ann"}, {"u2", "bob"}, {"u3", "cat"}} {
		_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,'x','now')`, u[0], u[1])
		require.NoError(t, err)
	}

	repo := stats.NewSQLite(db)
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, got)

	for _, g := range []stats.Game{win("flickle", 2), win("flickle", 2), loss("quote-quest", 4)} {
		_, err = repo.Record(ctx, "u1", g)
		require.NoError(t, err)
	}
	_, err = repo.Record(ctx, "u2", win("flickle", 5))
	require.NoError(t, err)

	modes, err := repo.Modes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, modes, 2)
	assert.Equal(t, "flickle", modes[0].Mode)
	assert.Equal(t, 2, modes[0].Won)
	assert.Equal(t, []int{0, 2}, modes[0].Distribution)
	assert.Equal(t, "quote-quest", modes[1].Mode)
	assert.Equal(t, 1, modes[1].Played)
	assert.Zero(t, modes[1].Won)

	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stats.Stats{GamesPlayed: 3, GamesWon: 2, CurrentStreak: 0, MaxStreak: 2}, got)

	board, err := repo.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].Name)
	assert.Equal(t, "ann", board[1].Name)
	assert.Equal(t, 67, board[1].WinRate)

	_, err = repo.Record(ctx, "missing", win("flickle", 1))
	assert.Error(t, err, "stats rows need a registered user")
}

// TestPostgres runs against a real server when FLICKLE_TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("FLICKLE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FLICKLE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := stats.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	id := "test-" + t.Name()
	require.NoError(t, repo.Register(ctx, id, "tester"))
	before, err := repo.Get(ctx, id)
	require.NoError(t, err)
	after, err := repo.Record(ctx, id, win("flickle", 3))
	require.NoError(t, err)
	assert.Equal(t, before.GamesPlayed+1, after.GamesPlayed)
	assert.Equal(t, before.CurrentStreak+1, after.CurrentStreak)

	modes, err := repo.Modes(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, modes)
	assert.Positive(t, modes[0].Distribution[2])
}
