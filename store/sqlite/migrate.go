package sqlite_store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrate brings the schema up to date. Every file under migrations/ runs
// once, in name order, and is recorded in schema_version alongside its
// statements so a crash never leaves a file half applied.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		if err := migrateFile(db, file); err != nil {
			return fmt.Errorf("migration %s: %w", file, err)
		}
	}
	return nil
}

func migrateFile(db *sql.DB, file string) error {
	var applied int64
	err := db.QueryRow("SELECT applied_at FROM schema_version WHERE name = ?", file).Scan(&applied)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	schema, err := migrationFS.ReadFile(file)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(string(schema)); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (name, applied_at) VALUES (?, ?)", file, time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}
