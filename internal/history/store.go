// Package history persists completed transcription sessions to a local
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
	"github.com/grqg-dev/vibe-code-transcriber/internal/session"
)

// Entry is one persisted transcription session.
type Entry struct {
	ID          int64
	SessionID   string
	StartedAt   time.Time
	DurationMS  int64
	AudioDevice string
	Text        string
}

// Store is the SQLite-backed transcript history. A disabled store is a
// valid no-op value so callers never branch on the history feature toggle.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history store according to config. When history is
// disabled it returns a no-op store.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    audio_device TEXT,
    text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_started ON transcripts(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record persists one completed session and prunes past the entry cap.
func (s *Store) Record(ctx context.Context, result session.StopResult) error {
	if s.db == nil {
		return nil
	}

	startedAt := result.StartedAt
	if startedAt.IsZero() {
		startedAt = s.clock().Add(-result.Duration)
	}
	startedAt = startedAt.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(session_id, started_at, duration_ms, audio_device, text)
		 VALUES(?, ?, ?, ?, ?)`,
		result.SessionID.String(), startedAt.Format(time.RFC3339Nano), result.Duration.Milliseconds(), result.AudioDevice, result.Transcript)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		s.logWarn("history prune failed", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, started_at, duration_ms, audio_device, text
		 FROM transcripts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started string
		if err := rows.Scan(&e.ID, &e.SessionID, &started, &e.DurationMS, &e.AudioDevice, &e.Text); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			e.StartedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// prune keeps only the newest max_entries rows.
func (s *Store) prune(ctx context.Context) error {
	if s.db == nil || s.cfg.MaxEntries <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id IN (
		SELECT id FROM transcripts ORDER BY id DESC LIMIT -1 OFFSET ?
	)`, s.cfg.MaxEntries)
	return err
}

func (s *Store) logWarn(message string, err error) {
	if s.log == nil || err == nil {
		return
	}
	s.log.Warn(message, slog.String("error", err.Error()))
}
