// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index records acquisition outcomes in a SQLite database so
// re-runs can skip identifiers that already have an artifact on disk.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Acquisition statuses recorded per identifier.
const (
	StatusAcquired = "acquired"
	StatusFailed   = "failed"
)

// Entry is one identifier's acquisition record.
type Entry struct {
	DOI          string
	CollectionID string
	Source       string
	Status       string
	ArtifactPath string
	FetchedAt    time.Time
}

// Index is the acquisition database.
type Index struct {
	db *sql.DB
}

// Open opens or creates the acquisition database at path, creating the
// schema if needed.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS acquisitions (
			doi TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			artifact_path TEXT,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_acquisitions_collection ON acquisitions(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_acquisitions_status ON acquisitions(status)`,
	}
	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record upserts one acquisition outcome. A later outcome for the same
// DOI replaces the earlier one, so a DOI that failed once and succeeded
// on a re-run reads as acquired.
func (x *Index) Record(ctx context.Context, e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO acquisitions (doi, collection_id, source, status, artifact_path, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doi) DO UPDATE SET
			collection_id=excluded.collection_id,
			source=excluded.source,
			status=excluded.status,
			artifact_path=excluded.artifact_path,
			fetched_at=excluded.fetched_at`,
		e.DOI, e.CollectionID, e.Source, e.Status, e.ArtifactPath,
		e.FetchedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording acquisition for %s: %w", e.DOI, err)
	}
	return nil
}

// Lookup returns the recorded entry for doi, or nil when the identifier
// has never been recorded.
func (x *Index) Lookup(ctx context.Context, doi string) (*Entry, error) {
	var e Entry
	var fetchedAt string
	err := x.db.QueryRowContext(ctx,
		`SELECT doi, collection_id, source, status, artifact_path, fetched_at
		 FROM acquisitions WHERE doi = ?`, doi).
		Scan(&e.DOI, &e.CollectionID, &e.Source, &e.Status, &e.ArtifactPath, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", doi, err)
	}
	if t, perr := time.Parse(time.RFC3339, fetchedAt); perr == nil {
		e.FetchedAt = t
	}
	return &e, nil
}

// Acquired reports whether doi has a recorded artifact that still exists
// on disk. A stale row whose artifact was deleted reads as not acquired,
// so the identifier is re-fetched.
func (x *Index) Acquired(ctx context.Context, doi string) (bool, error) {
	e, err := x.Lookup(ctx, doi)
	if err != nil {
		return false, err
	}
	if e == nil || e.Status != StatusAcquired || e.ArtifactPath == "" {
		return false, nil
	}
	if _, err := os.Stat(e.ArtifactPath); err != nil {
		return false, nil
	}
	return true, nil
}

// CollectionCounts returns per-status tallies for one collection.
func (x *Index) CollectionCounts(ctx context.Context, collectionID string) (map[string]int, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM acquisitions
		 WHERE collection_id = ? GROUP BY status`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("counting collection %s: %w", collectionID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning counts: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
