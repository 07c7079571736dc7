package run

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const defaultListLimit = 50

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("run store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			task            TEXT NOT NULL,
			tool            TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			detail          TEXT NOT NULL DEFAULT '',
			output_location TEXT NOT NULL DEFAULT '',
			started_at      TEXT NOT NULL,
			duration_ms     INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("run store: migrate: %w", err)
	}
	return nil
}

// Save inserts a run record.
func (s *SQLiteStore) Save(rec Record) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, task, tool, status, detail, output_location, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Task, rec.Tool, rec.Status, rec.Detail, rec.OutputLocation,
		rec.StartedAt.UTC().Format(time.RFC3339), rec.DurationMs)
	if err != nil {
		return fmt.Errorf("run store: save: %w", err)
	}
	return nil
}

// Get returns one run record by ID.
func (s *SQLiteStore) Get(id string) (Record, error) {
	row := s.db.QueryRow(`
		SELECT id, task, tool, status, detail, output_location, started_at, duration_ms
		FROM runs WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("run store: get: %w", err)
	}
	return rec, nil
}

// List returns run records, most recent first.
func (s *SQLiteStore) List(filter Filter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, task, tool, status, detail, output_location, started_at, duration_ms
		FROM runs
	`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("run store: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("run store: list: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes records started before olderThan and returns the count.
func (s *SQLiteStore) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`,
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("run store: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var startedAt string
	if err := row.Scan(&rec.ID, &rec.Task, &rec.Tool, &rec.Status, &rec.Detail,
		&rec.OutputLocation, &startedAt, &rec.DurationMs); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse started_at: %w", err)
	}
	rec.StartedAt = t
	return rec, nil
}
