package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS device_identity (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		token      TEXT    NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'employee' CHECK (role IN ('employee', 'admin')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		date        TEXT NOT NULL,
		check_in    TEXT NOT NULL,
		status      TEXT NOT NULL,
		latitude    REAL,
		longitude   REAL,
		device_id   TEXT NOT NULL DEFAULT '',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (employee_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id             TEXT PRIMARY KEY,
		employee_id    TEXT NOT NULL,
		business_name  TEXT NOT NULL,
		industry       TEXT NOT NULL,
		contact_person TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL,
		email          TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'Lead Generated',
		description    TEXT NOT NULL DEFAULT '',
		image_url      TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_interactions (
		id               TEXT PRIMARY KEY,
		client_id        TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		employee_id      TEXT NOT NULL,
		interaction_type TEXT NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		latitude         REAL NOT NULL,
		longitude        REAL NOT NULL,
		created_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_images (
		client_id   TEXT PRIMARY KEY REFERENCES clients(id) ON DELETE CASCADE,
		mime        TEXT NOT NULL,
		data        BLOB NOT NULL,
		uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent: checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"clients", "latitude", "REAL"},
		{"clients", "longitude", "REAL"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
