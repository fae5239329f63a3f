package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/JonMunkholm/dataimport/internal/logging"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Saver persists one valid row and returns whatever the caller wants
// collected for it.
type Saver interface {
	Save(ctx context.Context, line int, row reader.Row) (any, error)
}

// PostSaver is implemented by savers that need a hook after a complete,
// successful save pass.
type PostSaver interface {
	PostSaveAll(ctx context.Context) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, line int, row reader.Row) (any, error)

func (f SaverFunc) Save(ctx context.Context, line int, row reader.Row) (any, error) {
	return f(ctx, line, row)
}

// logSaver is used when no Saver is configured.
type logSaver struct {
	logger *slog.Logger
}

func (s logSaver) Save(ctx context.Context, line int, row reader.Row) (any, error) {
	s.logger.InfoContext(ctx, fmt.Sprintf(msgSaved, line), "line", line)
	return row, nil
}

// SaveAll saves every valid row and returns the collected results in row
// order. On failure the results gathered so far are returned with the
// error.
func (im *Importer) SaveAll(ctx context.Context) ([]any, error) {
	var out []any
	for v, err := range im.SaveIter(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveIter saves valid rows as the caller pulls them. A save failure is
// yielded once, wrapped in ErrSaveFailed, and ends the sequence. The
// PostSaver hook runs after the last row, only when nothing failed and the
// caller consumed the whole sequence.
func (im *Importer) SaveIter(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for res, err := range im.pass(ctx, true) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !res.Valid {
				continue
			}

			out, err := im.saver.Save(ctx, res.Line, res.Row)
			if im.cfg.Observer != nil {
				im.cfg.Observer.RowSaved(res.Line, err)
			}
			if err != nil {
				logging.Critical(ctx, im.logger, fmt.Sprintf(msgSaveStopped, err, err),
					"line", res.Line,
					"row", res.Row.String(),
				)
				yield(nil, fmt.Errorf("%w: line %d: %w", ErrSaveFailed, res.Line, err))
				return
			}
			if !yield(out, nil) {
				return
			}
		}

		if post, ok := im.saver.(PostSaver); ok {
			if err := post.PostSaveAll(ctx); err != nil {
				im.logger.ErrorContext(ctx, "post save hook failed", "error", err)
				yield(nil, fmt.Errorf("%w: post save: %w", ErrSaveFailed, err))
			}
		}
	}
}
