// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrPersistence marks a storage failure. Persistence errors are loud:
// capture surfaces them instead of silently dropping a snapshot.
var ErrPersistence = errors.New("coverage store failure")

// timestampLayout is fixed width, unlike RFC3339Nano which trims
// trailing fraction zeros. Timestamps are stored as TEXT and compared
// lexicographically, so every row must render at the same width for
// ORDER BY and the window cutoff to follow chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const storeSchema = `
CREATE TABLE IF NOT EXISTS coverage_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    overall_coverage REAL NOT NULL,
    core_coverage REAL NOT NULL,
    domain_coverage REAL NOT NULL,
    integration_coverage REAL NOT NULL,
    lines_covered INTEGER NOT NULL,
    lines_total INTEGER NOT NULL,
    branches_covered INTEGER NOT NULL,
    branches_total INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp
    ON coverage_snapshots(timestamp);
CREATE TABLE IF NOT EXISTS file_coverage (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL REFERENCES coverage_snapshots(id),
    file_path TEXT NOT NULL,
    coverage_percentage REAL NOT NULL,
    lines_covered INTEGER NOT NULL,
    lines_total INTEGER NOT NULL,
    component TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_file_coverage_snapshot
    ON file_coverage(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_file_coverage_path
    ON file_coverage(file_path);
`

// Store is the append-only snapshot time series backed by SQLite.
//
// # Description
//
// Rows are inserted once and never updated or deleted; history queries
// read back a window ordered oldest first. All writes for one snapshot
// happen inside a single transaction so a snapshot is either fully
// present or absent.
//
// # Thread Safety
//
// Store is safe for concurrent use; database/sql serializes access to
// the underlying connection pool.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the snapshot database at path.
// Parent directories are created automatically.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrPersistence, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrPersistence, err)
	}
	// modernc sqlite corrupts under concurrent writers on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrPersistence, err)
	}
	return &Store{db: db}, nil
}

// OpenMemoryStore opens an in-memory store, used by tests.
func OpenMemoryStore() (*Store, error) {
	return OpenStore(":memory:")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist appends a snapshot and its file rows atomically, assigning
// snap.ID and the per-file SnapshotID on success.
func (s *Store) Persist(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO coverage_snapshots (
            timestamp, overall_coverage, core_coverage, domain_coverage,
            integration_coverage, lines_covered, lines_total,
            branches_covered, branches_total
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Timestamp.UTC().Format(timestampLayout),
		snap.Overall,
		snap.Component(ComponentCore),
		snap.Component(ComponentDomain),
		snap.Component(ComponentIntegration),
		snap.LinesCovered,
		snap.LinesTotal,
		snap.BranchesCovered,
		snap.BranchesTotal,
	)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %v", ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: snapshot id: %v", ErrPersistence, err)
	}

	for i := range snap.Files {
		f := &snap.Files[i]
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO file_coverage (
                snapshot_id, file_path, coverage_percentage,
                lines_covered, lines_total, component
            ) VALUES (?, ?, ?, ?, ?, ?)`,
			id, f.Path, f.Percent, f.LinesCovered, f.LinesTotal, f.Component,
		); err != nil {
			return fmt.Errorf("%w: insert file row for %s: %v", ErrPersistence, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", ErrPersistence, err)
	}

	snap.ID = id
	for i := range snap.Files {
		snap.Files[i].SnapshotID = id
	}
	return nil
}

// History returns snapshot headers (no file rows) whose timestamp falls
// within the trailing window, ordered oldest first. windowDays <= 0
// means the full history.
func (s *Store) History(ctx context.Context, windowDays int) ([]Snapshot, error) {
	query := `
        SELECT id, timestamp, overall_coverage, core_coverage,
               domain_coverage, integration_coverage, lines_covered,
               lines_total, branches_covered, branches_total
        FROM coverage_snapshots`
	args := []any{}
	if windowDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
		query += ` WHERE timestamp >= ?`
		args = append(args, cutoff.Format(timestampLayout))
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", ErrPersistence, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// Latest returns the newest n snapshot headers, ordered oldest first so
// callers can difference consecutive entries directly.
func (s *Store) Latest(ctx context.Context, n int) ([]Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, timestamp, overall_coverage, core_coverage,
               domain_coverage, integration_coverage, lines_covered,
               lines_total, branches_covered, branches_total
        FROM coverage_snapshots
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("%w: query latest: %v", ErrPersistence, err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}

// FilesFor loads the file rows of one snapshot, ordered by path.
func (s *Store) FilesFor(ctx context.Context, snapshotID int64) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT snapshot_id, file_path, coverage_percentage,
               lines_covered, lines_total, component
        FROM file_coverage
        WHERE snapshot_id = ?
        ORDER BY file_path ASC`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("%w: query file rows: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.SnapshotID, &f.Path, &f.Percent,
			&f.LinesCovered, &f.LinesTotal, &f.Component); err != nil {
			return nil, fmt.Errorf("%w: scan file row: %v", ErrPersistence, err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate file rows: %v", ErrPersistence, err)
	}
	return files, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coverage_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count snapshots: %v", ErrPersistence, err)
	}
	return n, nil
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	var snaps []Snapshot
	for rows.Next() {
		var (
			snap                 Snapshot
			ts                   string
			core, domain, integr float64
		)
		if err := rows.Scan(&snap.ID, &ts, &snap.Overall, &core, &domain,
			&integr, &snap.LinesCovered, &snap.LinesTotal,
			&snap.BranchesCovered, &snap.BranchesTotal); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot: %v", ErrPersistence, err)
		}
		parsed, err := time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: parse timestamp %q: %v", ErrPersistence, ts, err)
		}
		snap.Timestamp = parsed
		snap.Components = map[string]float64{
			ComponentCore:        core,
			ComponentDomain:      domain,
			ComponentIntegration: integr,
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate snapshots: %v", ErrPersistence, err)
	}
	return snaps, nil
}
