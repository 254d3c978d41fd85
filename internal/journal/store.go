// Package journal keeps a local sqlite record of the requests a worker
// answered and the pages it returned.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("journal closed")

type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer keeps WAL mode and the pragmas on a single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	var clean []string
	for _, line := range strings.Split(schemaSQL, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			clean = append(clean, line)
		}
	}
	if _, err := s.db.Exec(strings.Join(clean, "\n")); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Record stores e and its pages in one transaction. Empty ID and CreatedAt
// are filled in.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests (id, session, request_id, method, target, status, error_kind, message, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Session, e.RequestID, e.Method, e.Target, e.Status, e.ErrorKind, e.Message,
		e.Latency.Milliseconds(), e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for _, p := range e.Pages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pages (request_ref, url, title, link_count, content_length)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, p.URL, p.Title, p.LinkCount, p.ContentLength)
		if err != nil {
			return fmt.Errorf("insert page: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit entries, newest first, with their pages.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, request_id, method, target, status, error_kind, message, latency_ms, created_at
		FROM requests ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var target, kind, msg sql.NullString
		var latencyMs, createdMs int64
		if err := rows.Scan(&e.ID, &e.Session, &e.RequestID, &e.Method, &target, &e.Status, &kind, &msg, &latencyMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.Target = target.String
		e.ErrorKind = kind.String
		e.Message = msg.String
		e.Latency = time.Duration(latencyMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range entries {
		pages, err := s.pagesFor(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Pages = pages
	}
	return entries, nil
}

func (s *Store) pagesFor(ctx context.Context, ref string) ([]PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, link_count, content_length FROM pages WHERE request_ref = ? ORDER BY id
	`, ref)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var title sql.NullString
		if err := rows.Scan(&p.URL, &title, &p.LinkCount, &p.ContentLength); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.Title = title.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Search finds journaled pages whose url or title match query, using FTS5
// syntax. Best matches come first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]PageHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.url, p.title, p.link_count, p.content_length, r.id, r.method, r.created_at
		FROM pages_fts f
		JOIN pages p ON p.id = f.rowid
		JOIN requests r ON r.id = p.request_ref
		WHERE pages_fts MATCH ?
		ORDER BY bm25(pages_fts), r.created_at DESC
		LIMIT ?
	`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()

	var hits []PageHit
	for rows.Next() {
		var h PageHit
		var title sql.NullString
		var createdMs int64
		if err := rows.Scan(&h.URL, &title, &h.LinkCount, &h.ContentLength, &h.RequestRef, &h.Method, &createdMs); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.Title = title.String
		h.CreatedAt = time.UnixMilli(createdMs)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each term so URL punctuation is matched literally.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Prune deletes entries older than maxAge and reports how many went.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}
