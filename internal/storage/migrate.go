package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// MigrateUp creates or upgrades the habit schema.
func MigrateUp(db *sql.DB) error {
	return applyMigrations(db, upSuffix)
}

// MigrateDown drops the habit schema, newest migration first.
func MigrateDown(db *sql.DB) error {
	return applyMigrations(db, downSuffix)
}

func applyMigrations(db *sql.DB, suffix string) error {
	entries, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	for _, name := range migrationOrder(entries, suffix == downSuffix) {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", strings.TrimPrefix(name, "migrations/"), err)
		}
	}
	return nil
}

// migrationOrder sorts by version prefix; rollbacks run in reverse.
func migrationOrder(names []string, down bool) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	if down {
		slices.Reverse(out)
	}
	return out
}
