// Package assets embeds the daily puzzle catalogue and SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed puzzles.json sql/*.sql pg/*.sql
var FS embed.FS

// Puzzles returns the raw puzzle catalogue.
func Puzzles() ([]byte, error) {
	return FS.ReadFile("puzzles.json")
}

// SQLiteMigrations returns the migrations for the local SQLite database.
func SQLiteMigrations() fs.FS {
	sub, _ := fs.Sub(FS, "sql")
	return sub
}

// PostgresSchema returns the schema statements for the hosted stats table.
func PostgresSchema() ([]byte, error) {
	return FS.ReadFile("pg/001_game_stats.sql")
}
