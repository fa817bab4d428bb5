package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session    TEXT NOT NULL,
	input      TEXT NOT NULL,
	prediction REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_session ON predictions (session, seq);
`

// SQLiteStore journals entries to a SQLite database so history survives a
// restart.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the journal at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite history path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened prediction history journal")
	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Append implements Store
func (s *SQLiteStore) Append(session string, e Entry) (Entry, error) {
	e = stamp(e, s.now)

	input, err := json.Marshal(e.Input)
	if err != nil {
		return Entry{}, fmt.Errorf("encode history input: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO predictions (id, session, input, prediction, created_at) VALUES (?, ?, ?, ?, ?)",
		e.ID, session, string(input), e.Prediction, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return e, nil
}

// List implements Store
func (s *SQLiteStore) List(session string) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, input, prediction, created_at FROM predictions WHERE session = ? ORDER BY seq",
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e         Entry
			input     string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &input, &e.Prediction, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(input), &e.Input); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Len implements Store
func (s *SQLiteStore) Len(session string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT count(*) FROM predictions WHERE session = ?", session).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Error closing history journal")
		return err
	}
	return nil
}
