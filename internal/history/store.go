package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whispertype/whispertype/internal/logger"
)

// Entry is one stored transcript
type Entry struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	DurationMs int64     `json:"duration_ms"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists transcripts in a local SQLite database
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore opens the database at path, creating the schema if needed
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db, log: log.Named("history")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			model TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transcripts_created_at
			ON transcripts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert stores a transcript and returns its ID
func (s *Store) Insert(text string, duration time.Duration, model string) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO transcripts (text, duration_ms, model, created_at) VALUES (?, ?, ?, ?)`,
		text, duration.Milliseconds(), model, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcript: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get transcript ID: %w", err)
	}

	s.log.Debug("transcript stored",
		logger.Int64("id", id),
		logger.Int("chars", len(text)))
	return id, nil
}

// Recent returns up to n transcripts, newest first
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, text, duration_ms, model, created_at
		 FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.DurationMs, &e.Model, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcripts: %w", err)
	}
	return entries, nil
}

// Prune deletes all but the newest keep transcripts and returns the number
// removed
func (s *Store) Prune(keep int) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM transcripts WHERE id NOT IN (
			SELECT id FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcripts: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned transcripts: %w", err)
	}
	if removed > 0 {
		s.log.Info("pruned old transcripts", logger.Int64("removed", removed))
	}
	return removed, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
