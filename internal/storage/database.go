package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/studydeck/internal/domain"
)

// DB is a key-value store backed by a single SQLite table.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection and ensures the schema is up to date.
// The pool is limited to one connection so ":memory:" databases are shared.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", domain.ErrStorage, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %v", domain.ErrStorage, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to apply schema: %v", domain.ErrStorage, err)
	}

	return &DB{conn: db, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the value stored under key. The boolean is false when the key
// is absent.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: failed to read %s: %v", domain.ErrStorage, key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (db *DB) Put(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, db.now())
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: failed to delete %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// Keys returns every stored key with the given prefix, in order.
func (db *DB) Keys(prefix string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT key FROM entries
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key
	`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list keys: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: failed to scan key row: %v", domain.ErrStorage, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list keys: %v", domain.ErrStorage, err)
	}
	return keys, nil
}
