package marketcache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists cached market tables to a SQLite database so a
// restarted process within the TTL window does not re-fetch the whole
// market snapshot.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS market_cache (
		key        TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		payload    BLOB NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Get(key string) ([]byte, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	var fetchedAt int64
	err := s.db.QueryRow(
		"SELECT payload, fetched_at FROM market_cache WHERE key = ?", key,
	).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return payload, time.Unix(fetchedAt, 0), true, nil
}

func (s *SQLiteStore) Put(key string, payload []byte, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO market_cache (key, fetched_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		key, fetchedAt.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
