package dispatcher

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Storage is the dispatcher's durable key-value store. The background worker
// shares no memory with the foreground; this store is the only state that
// survives worker eviction, so quiet mode lives here and nowhere else.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// SQLiteStorage is a file-backed Storage for the client process.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenStorage opens (creating if needed) the client-local store at path.
func OpenStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open client store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init client store: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Get returns the stored value, or "" if the key has never been set.
func (s *SQLiteStorage) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set stores the value, replacing any previous one.
func (s *SQLiteStorage) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
