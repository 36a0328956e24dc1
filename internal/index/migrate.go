package index

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		Version:     1,
		Description: "raw_records and documents tables",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS raw_records (
					seq        INTEGER PRIMARY KEY AUTOINCREMENT,
					record_key TEXT UNIQUE NOT NULL,
					meta_id    TEXT NOT NULL,
					payload    TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_raw_records_meta_id ON raw_records(meta_id)`,
				`CREATE TABLE IF NOT EXISTS documents (
					seq        INTEGER PRIMARY KEY AUTOINCREMENT,
					doc_key    TEXT UNIQUE NOT NULL,
					wikidataid TEXT NOT NULL,
					payload    TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_wikidataid ON documents(wikidataid)`,
			}
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}

func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate applies pending migrations, tracking progress in PRAGMA user_version
func migrate(conn *sql.DB) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Debug().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// modernc/sqlite does not allow user_version inside the transaction
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
