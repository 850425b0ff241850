// Package store persists computed success curves in sqlite so runs can be
// compared over time and browsed from the admin pages.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/timeutil"
)

// DB wraps the curve database handle.
type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// OpenDB opens (creating if needed) the database at path and applies every
// pending embedded migration.
func OpenDB(path string) (*DB, error) {
	db, err := OpenUnmigrated(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(Migrations()); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Debugf("store: opened %s", path)
	return db, nil
}

// OpenUnmigrated opens the database without touching its schema, for the
// migrate subcommands.
func OpenUnmigrated(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// SetClock replaces the clock used for run timestamps and busy backoff.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// retryOnBusy retries fn while sqlite reports the database as locked.
func (db *DB) retryOnBusy(fn func() error) error {
	const attempts = 5
	backoff := 20 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		db.clock.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func isBusy(err error) bool {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
