// Package journal records orchestration runs and their event timelines in
// a local SQLite database. The journal is observability history only; the
// snapshot store remains the source of truth for run state.
package journal

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens or creates the journal database and brings its schema up to
// date. The single-connection pool serializes writers; events from one run
// arrive in order, and the dashboard reads through the same handle.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL keeps `sitesmith runs` readable while a run is appending.
	// The journal works without it, so that pragma alone is not fatal.
	for _, pragma := range []string{"foreign_keys=ON", "busy_timeout=5000", "journal_mode=WAL"} {
		if _, err := db.Exec("PRAGMA " + pragma + ";"); err != nil {
			if pragma == "journal_mode=WAL" {
				log.Warn().Err(err).Msg("journal: WAL unavailable, continuing without it")
				continue
			}
			_ = db.Close()
			return nil, fmt.Errorf("journal pragma %s: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return db, nil
}
