package stats

import (
	"context"
	"database/sql"
	"errors"
)

// SQLite stores account stats in the game_stats table of the local database.
// Players must exist in users (foreign key).
type SQLite struct{ db *sql.DB }

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Register is a no-op: the users row carries the name.
func (s *SQLite) Register(ctx context.Context, playerID, name string) error { return nil }

func (s *SQLite) Get(ctx context.Context, playerID string) (Stats, error) {
	return scanStats(s.db.QueryRowContext(ctx, `
		SELECT games_played, games_won, current_streak, max_streak
		FROM game_stats WHERE user_id=?`, playerID))
}

// Record reads, applies and upserts inside one transaction.
func (s *SQLite) Record(ctx context.Context, playerID string, g Game) (Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanStats(tx.QueryRowContext(ctx, `
		SELECT games_played, games_won, current_streak, max_streak
		FROM game_stats WHERE user_id=?`, playerID))
	if err != nil {
		return Stats{}, err
	}
	next := cur.Record(g.Won)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO game_stats (user_id, games_played, games_won, current_streak, max_streak, updated_at)
		VALUES (?,?,?,?,?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(user_id) DO UPDATE SET
			games_played=excluded.games_played,
			games_won=excluded.games_won,
			current_streak=excluded.current_streak,
			max_streak=excluded.max_streak,
			updated_at=excluded.updated_at`,
		playerID, next.GamesPlayed, next.GamesWon, next.CurrentStreak, next.MaxStreak)
	if err != nil {
		return Stats{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO mode_tallies (user_id, mode, won, guesses, games) VALUES (?,?,?,?,1)
		ON CONFLICT(user_id, mode, won, guesses) DO UPDATE SET games = games + 1`,
		playerID, g.Mode, g.Won, g.Guesses)
	if err != nil {
		return Stats{}, err
	}
	return next, tx.Commit()
}

func (s *SQLite) Modes(ctx context.Context, playerID string) ([]ModeStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mode, won, guesses, games FROM mode_tallies WHERE user_id=?`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tallies []Tally
	for rows.Next() {
		var t Tally
		if err := rows.Scan(&t.Mode, &t.Won, &t.Guesses, &t.Count); err != nil {
			return nil, err
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return Summarize(tallies), nil
}

func (s *SQLite) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.user_id, u.username, g.games_played, g.games_won, g.current_streak, g.max_streak
		FROM game_stats g JOIN users u ON u.id = g.user_id
		WHERE g.games_played > 0
		ORDER BY CAST(g.games_won AS REAL) / g.games_played DESC, g.games_won DESC, u.username ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var st Stats
		if err := rows.Scan(&e.PlayerID, &e.Name, &st.GamesPlayed, &st.GamesWon, &st.CurrentStreak, &st.MaxStreak); err != nil {
			return nil, err
		}
		e.View = st.View()
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanStats reads one stats row; a missing row is zero stats.
func scanStats(row rowScanner) (Stats, error) {
	var s Stats
	err := row.Scan(&s.GamesPlayed, &s.GamesWon, &s.CurrentStreak, &s.MaxStreak)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	return s, err
}
