// db.go
//
// Persistence wiring for the server.
// Responsibilities:
//   - Open the SQLite database and apply the embedded migrations.
//   - Pick the account stats backend: Postgres when a database URL is
//     configured, otherwise the SQLite game_stats table.

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flickle/assets"
	"github.com/robalobadob/flickle/internal/stats"
	"github.com/robalobadob/flickle/internal/store"
)

// openDB opens (and creates if missing) the SQLite database and migrates it.
func openDB(path string) (*sql.DB, error) {
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.Migrate(db, assets.SQLiteMigrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openAccounts returns the stats repository for signed-in players and a
// function releasing it.
func openAccounts(ctx context.Context, cfg *Config, db *sql.DB) (stats.Repository, func(), error) {
	if cfg.databaseURL == "" {
		log.Info().Msg("account stats in sqlite")
		return stats.NewSQLite(db), func() {}, nil
	}
	pg, err := stats.NewPostgres(ctx, cfg.databaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("account stats in postgres")
	return pg, pg.Close, nil
}
