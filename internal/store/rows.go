package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

const (
	insertRowSQL = `INSERT INTO import_rows (import_id, definition, line, data)
VALUES ($1, $2, $3, $4)
RETURNING id`

	upsertRunSQL = `INSERT INTO import_runs (import_id, definition, source, rows_saved)
VALUES ($1, $2, $3, $4)
ON CONFLICT (import_id) DO UPDATE
SET rows_saved = EXCLUDED.rows_saved, finished_at = now()`

	listRunsSQL = `SELECT import_id, definition, source, rows_saved, finished_at
FROM import_runs
ORDER BY finished_at DESC
LIMIT $1`
)

// SavedRow is what RowStore returns for each saved line.
type SavedRow struct {
	ID   int64
	Line int
}

// RowStore saves valid rows as JSONB documents and records a summary of the
// run once every row was saved. It implements core.Saver and
// core.PostSaver for a single import.
type RowStore struct {
	db         DBTX
	importID   uuid.UUID
	definition string
	source     string
	saved      int
}

// NewRowStore returns a RowStore for one import.
func NewRowStore(db DBTX, importID uuid.UUID, definition, source string) *RowStore {
	return &RowStore{
		db:         db,
		importID:   importID,
		definition: definition,
		source:     source,
	}
}

// Save inserts row under line. The ordinal key is not stored; the line
// column holds it.
func (s *RowStore) Save(ctx context.Context, line int, row reader.Row) (any, error) {
	doc := row.Clone()
	delete(doc, reader.OrdinalKey)

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode line %d: %w", line, err)
	}

	var id int64
	err = s.db.QueryRow(ctx, insertRowSQL, pgUUID(s.importID), s.definition, line, data).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert line %d: %w", line, err)
	}

	s.saved++
	return SavedRow{ID: id, Line: line}, nil
}

// PostSaveAll records the run in import_runs.
func (s *RowStore) PostSaveAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, upsertRunSQL, pgUUID(s.importID), s.definition, s.source, s.saved)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// Saved returns how many rows were inserted so far.
func (s *RowStore) Saved() int { return s.saved }

// Run summarizes a completed import.
type Run struct {
	ImportID   uuid.UUID `json:"import_id"`
	Definition string    `json:"definition"`
	Source     string    `json:"source"`
	RowsSaved  int       `json:"rows_saved"`
	FinishedAt time.Time `json:"finished_at"`
}

// ListRuns returns the most recent completed imports, newest first.
func ListRuns(ctx context.Context, db DBTX, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id  pgtype.UUID
			run Run
		)
		if err := rows.Scan(&id, &run.Definition, &run.Source, &run.RowsSaved, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.ImportID = uuid.UUID(id.Bytes)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
