package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAssigned = errors.New("bundle already assigned")
)

const dateLayout = "2006-01-02"

// DB wraps sql.DB with the programme schema.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// Open opens the database at path and runs migrations.
func Open(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := New(sqlDB, logger)
	db.path = path
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

// New wraps an already open connection without running migrations.
func New(sqlDB *sql.DB, logger *zerolog.Logger) *DB {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DB{DB: sqlDB, logger: logger}
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS days (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			date TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			visible BOOLEAN NOT NULL DEFAULT 1,
			is_default BOOLEAN NOT NULL DEFAULT 0,
			is_undefined BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS slot_lengths (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			minutes INTEGER NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT 0,
			is_undefined BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day_id INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			start_text TEXT NOT NULL DEFAULT '',
			slot_text TEXT NOT NULL DEFAULT '',
			length_id INTEGER NOT NULL,
			visible BOOLEAN NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 0,
			is_default BOOLEAN NOT NULL DEFAULT 0,
			is_undefined BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (day_id) REFERENCES days(id) ON DELETE CASCADE,
			FOREIGN KEY (length_id) REFERENCES slot_lengths(id)
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			visible BOOLEAN NOT NULL DEFAULT 1,
			can_clash BOOLEAN NOT NULL DEFAULT 0,
			is_default BOOLEAN NOT NULL DEFAULT 0,
			is_undefined BOOLEAN NOT NULL DEFAULT 0,
			grid_order INTEGER NOT NULL DEFAULT 0,
			parent_id INTEGER,
			FOREIGN KEY (parent_id) REFERENCES rooms(id) ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED
		)`,
		`CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL DEFAULT '',
			middle_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			badge TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS kit_kinds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kit_things (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			kind_id INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 1 CHECK (count > 0),
			FOREIGN KEY (kind_id) REFERENCES kit_kinds(id)
		)`,
		`CREATE TABLE IF NOT EXISTS kit_bundles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kit_bundle_things (
			bundle_id INTEGER NOT NULL,
			thing_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (bundle_id, thing_id),
			FOREIGN KEY (bundle_id) REFERENCES kit_bundles(id) ON DELETE CASCADE,
			FOREIGN KEY (thing_id) REFERENCES kit_things(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS kit_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind_id INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 1 CHECK (count > 0),
			setup_assistance BOOLEAN NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			sorted BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (kind_id) REFERENCES kit_kinds(id)
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			shortname TEXT NOT NULL DEFAULT '',
			slot_id INTEGER NOT NULL,
			length_id INTEGER NOT NULL,
			room_id INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			seating TEXT NOT NULL DEFAULT '',
			front_layout TEXT NOT NULL DEFAULT '',
			visible BOOLEAN NOT NULL DEFAULT 1,
			follows_id INTEGER,
			FOREIGN KEY (slot_id) REFERENCES slots(id),
			FOREIGN KEY (length_id) REFERENCES slot_lengths(id),
			FOREIGN KEY (room_id) REFERENCES rooms(id),
			FOREIGN KEY (follows_id) REFERENCES items(id) ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED
		)`,
		`CREATE TABLE IF NOT EXISTS item_requests (
			item_id INTEGER NOT NULL,
			request_id INTEGER NOT NULL,
			PRIMARY KEY (item_id, request_id),
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (request_id) REFERENCES kit_requests(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS item_people (
			item_id INTEGER NOT NULL,
			person_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			visible BOOLEAN NOT NULL DEFAULT 1,
			PRIMARY KEY (item_id, person_id),
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS kit_room_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			thing_id INTEGER NOT NULL,
			bundle_id INTEGER,
			from_slot_id INTEGER NOT NULL,
			to_slot_id INTEGER NOT NULL,
			to_length_id INTEGER NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			FOREIGN KEY (thing_id) REFERENCES kit_things(id) ON DELETE CASCADE,
			FOREIGN KEY (bundle_id) REFERENCES kit_bundles(id),
			FOREIGN KEY (from_slot_id) REFERENCES slots(id),
			FOREIGN KEY (to_slot_id) REFERENCES slots(id),
			FOREIGN KEY (to_length_id) REFERENCES slot_lengths(id)
		)`,
		`CREATE TABLE IF NOT EXISTS kit_item_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			thing_id INTEGER NOT NULL,
			bundle_id INTEGER,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (thing_id) REFERENCES kit_things(id) ON DELETE CASCADE,
			FOREIGN KEY (bundle_id) REFERENCES kit_bundles(id)
		)`,
		`CREATE TABLE IF NOT EXISTS room_availability (
			room_id INTEGER NOT NULL,
			slot_id INTEGER NOT NULL,
			PRIMARY KEY (room_id, slot_id),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			FOREIGN KEY (slot_id) REFERENCES slots(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS person_availability (
			person_id INTEGER NOT NULL,
			slot_id INTEGER NOT NULL,
			PRIMARY KEY (person_id, slot_id),
			FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE,
			FOREIGN KEY (slot_id) REFERENCES slots(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS thing_availability (
			thing_id INTEGER NOT NULL,
			slot_id INTEGER NOT NULL,
			PRIMARY KEY (thing_id, slot_id),
			FOREIGN KEY (thing_id) REFERENCES kit_things(id) ON DELETE CASCADE,
			FOREIGN KEY (slot_id) REFERENCES slots(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_slots_day ON slots(day_id, start_offset)`,
		`CREATE INDEX IF NOT EXISTS idx_items_slot ON items(slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_room ON items(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_item_people_person ON item_people(person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_item_requests_request ON item_requests(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kit_room_room ON kit_room_assignments(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kit_room_bundle ON kit_room_assignments(bundle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kit_item_item ON kit_item_assignments(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_kit_item_bundle ON kit_item_assignments(bundle_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
