package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robalobadob/flickle/assets"
)

// Postgres stores stats in the hosted database's game_stats table.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dsn and makes sure the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	p := &Postgres{db: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.db.Close() }

func (p *Postgres) ensureSchema(ctx context.Context) error {
	ddl, err := assets.PostgresSchema()
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Register creates the player's row or updates its display name.
func (p *Postgres) Register(ctx context.Context, playerID, name string) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO game_stats (user_id, display_name) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		playerID, name)
	return err
}

func (p *Postgres) Get(ctx context.Context, playerID string) (Stats, error) {
	var s Stats
	err := p.db.QueryRow(ctx,
		`SELECT games_played, games_won, current_streak, max_streak FROM game_stats WHERE user_id=$1`,
		playerID).Scan(&s.GamesPlayed, &s.GamesWon, &s.CurrentStreak, &s.MaxStreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stats{}, nil
	}
	return s, err
}

// Record locks the player's row, applies the game and writes it back.
func (p *Postgres) Record(ctx context.Context, playerID string, g Game) (Stats, error) {
	var next Stats
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		var cur Stats
		err := tx.QueryRow(ctx,
			`SELECT games_played, games_won, current_streak, max_streak
			FROM game_stats WHERE user_id=$1 FOR UPDATE`, playerID,
		).Scan(&cur.GamesPlayed, &cur.GamesWon, &cur.CurrentStreak, &cur.MaxStreak)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		next = cur.Record(g.Won)
		_, err = tx.Exec(ctx,
			`INSERT INTO game_stats (user_id, games_played, games_won, current_streak, max_streak, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (user_id) DO UPDATE SET
				games_played = EXCLUDED.games_played,
				games_won = EXCLUDED.games_won,
				current_streak = EXCLUDED.current_streak,
				max_streak = EXCLUDED.max_streak,
				updated_at = EXCLUDED.updated_at`,
			playerID, next.GamesPlayed, next.GamesWon, next.CurrentStreak, next.MaxStreak)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO mode_tallies (user_id, mode, won, guesses, games) VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (user_id, mode, won, guesses) DO UPDATE SET games = mode_tallies.games + 1`,
			playerID, g.Mode, g.Won, g.Guesses)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	return next, nil
}

func (p *Postgres) Modes(ctx context.Context, playerID string) ([]ModeStats, error) {
	rows, err := p.db.Query(ctx,
		`SELECT mode, won, guesses, games FROM mode_tallies WHERE user_id=$1`, playerID)
	if err != nil {
		return nil, err
	}
	tallies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Tally, error) {
		var t Tally
		err := row.Scan(&t.Mode, &t.Won, &t.Guesses, &t.Count)
		return t, err
	})
	if err != nil {
		return nil, err
	}
	return Summarize(tallies), nil
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.Query(ctx,
		`SELECT user_id, display_name, games_played, games_won, current_streak, max_streak
		FROM game_stats
		WHERE games_played > 0
		ORDER BY games_won::float / games_played DESC, games_won DESC, display_name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var s Stats
		if err := rows.Scan(&e.PlayerID, &e.Name, &s.GamesPlayed, &s.GamesWon, &s.CurrentStreak, &s.MaxStreak); err != nil {
			return nil, err
		}
		e.View = s.View()
		out = append(out, e)
	}
	return out, rows.Err()
}
