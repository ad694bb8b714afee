package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily round for one mode.
type Result struct {
	PlayerID  string `json:"playerId"`
	Mode      string `json:"mode"`
	Date      string `json:"date"`
	Puzzle    int    `json:"puzzle"`
	Won       bool   `json:"won"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Store persists daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether playerID has a result for mode on date.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, mode, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE player_id=? AND mode=? AND date=?",
		playerID, mode, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult stores r; a second result for the same player, mode and
// date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, mode, date, puzzle, won, guesses, elapsed_ms)
		VALUES(?,?,?,?,?,?,?)`, r.PlayerID, r.Mode, r.Date, r.Puzzle, r.Won, r.Guesses, r.ElapsedMs,
	)
	return err
}

// LBRow is one leaderboard line.
type LBRow struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Won       bool   `json:"won"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard ranks a mode's results for date: winners first, then fewest
// guesses, then fastest.
func (s *Store) Leaderboard(ctx context.Context, mode, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.player_id, COALESCE(u.username, 'guest'), r.won, r.guesses, r.elapsed_ms
		FROM daily_results r
		LEFT JOIN users u ON u.id = r.player_id
		WHERE r.mode=? AND r.date=?
		ORDER BY r.won DESC, r.guesses ASC, r.elapsed_ms ASC, r.created_at ASC
		LIMIT ?`, mode, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Name, &r.Won, &r.Guesses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Claim moves a guest's results to an account after signup or login.
// Days the account already has a result for keep the account's result.
func (s *Store) Claim(ctx context.Context, fromID, toID string) (int64, error) {
	if fromID == "" || toID == "" || fromID == toID {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET player_id=? WHERE player_id=?`, toID, fromID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
