package store

import (
	"context"
	"fmt"
	"time"
)

// ResetTimeout is the maximum duration for reset operations.
const ResetTimeout = 30 * time.Second

const (
	resetRowsSQL = `DELETE FROM import_rows WHERE $1 = '' OR definition = $1`
	resetRunsSQL = `DELETE FROM import_runs WHERE $1 = '' OR definition = $1`
)

// ResetResult counts what a reset deleted.
type ResetResult struct {
	Rows int64 `json:"rows"`
	Runs int64 `json:"runs"`
}

type resetFn func(ctx context.Context, definition string) (int64, error)

// Reset deletes the saved rows and run records of definition. An empty
// definition clears every import. This is a destructive operation.
func Reset(ctx context.Context, db DBTX, definition string) (ResetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var res ResetResult
	err := runResets(ctx, definition, []resetFn{
		deleteFn(db, resetRowsSQL, "import rows", &res.Rows),
		deleteFn(db, resetRunsSQL, "import runs", &res.Runs),
	})
	return res, err
}

func deleteFn(db DBTX, sql, what string, count *int64) resetFn {
	return func(ctx context.Context, definition string) (int64, error) {
		tag, err := db.Exec(ctx, sql, definition)
		if err != nil {
			return 0, fmt.Errorf("reset %s: %w", what, err)
		}
		*count = tag.RowsAffected()
		return *count, nil
	}
}

func runResets(ctx context.Context, definition string, resets []resetFn) error {
	for _, reset := range resets {
		if _, err := reset(ctx, definition); err != nil {
			return err
		}
	}
	return nil
}
