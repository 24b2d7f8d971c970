// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/fintrack-tui/internal/model"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("transcript store is closed")

// MaxMessagesPerThread bounds a thread's transcript; older rows are
// pruned on append.
const MaxMessagesPerThread = 2000

// DefaultPath returns ~/.fintrack/transcripts.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fintrack", "transcripts.db")
	}
	return filepath.Join(home, ".fintrack", "transcripts.db")
}

// ThreadInfo summarises one stored thread.
type ThreadInfo struct {
	ThreadID     string
	MessageCount int
	UpdatedAt    time.Time
}

// Store is a SQLite transcript cache. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens or creates the database at path. ":memory:" gives a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize metadata: %w", err)
	}

	return &Store{db: db, logger: zerolog.Nop()}, nil
}

// WithLogger sets the logger.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.logger = l
	return s
}

// Append stores recs at the end of threadID's transcript. Records whose ID
// is already stored are skipped.
func (s *Store) Append(threadID string, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO messages
		    (thread_id, id, kind, text, tool_name, args, result, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.Exec(threadID, r.ID, r.Kind, r.Text, r.ToolName,
			nullJSON(r.Args), nullJSON(r.Result), r.Failed, r.At.UnixNano())
		if err != nil {
			return fmt.Errorf("insert message %s: %w", r.ID, err)
		}
	}

	_, err = tx.Exec(`
		DELETE FROM messages WHERE thread_id = ? AND seq NOT IN (
		    SELECT seq FROM messages WHERE thread_id = ? ORDER BY seq DESC LIMIT ?
		)`, threadID, threadID, MaxMessagesPerThread)
	if err != nil {
		return fmt.Errorf("prune transcript: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug().Str("thread", threadID).Int("count", len(recs)).Msg("transcript appended")
	return nil
}

// Load returns threadID's transcript in arrival order. An unknown thread
// yields an empty slice.
func (s *Store) Load(threadID string) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT id, kind, text, tool_name, args, result, failed, created_at
		FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r            model.Record
			args, result sql.NullString
			at           int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Text, &r.ToolName, &args, &result, &r.Failed, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if args.Valid {
			r.Args = json.RawMessage(args.String)
		}
		if result.Valid {
			r.Result = json.RawMessage(result.String)
		}
		r.At = time.Unix(0, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear removes threadID's transcript.
func (s *Store) Clear(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

// Threads lists stored threads, most recently updated first.
func (s *Store) Threads() ([]ThreadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT thread_id, COUNT(*), MAX(created_at)
		FROM messages GROUP BY thread_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var out []ThreadInfo
	for rows.Next() {
		var t ThreadInfo
		var at int64
		if err := rows.Scan(&t.ThreadID, &t.MessageCount, &at); err != nil {
			return nil, err
		}
		t.UpdatedAt = time.Unix(0, at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
