package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/dataimport/internal/logging"
)

const (
	insertLogSQL = `INSERT INTO import_logs (logged_at, logger, level, message, source, func, attrs)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	purgeLogsSQL = `DELETE FROM import_logs WHERE logged_at < $1`
)

// LogStore persists log records for logging.DBHandler.
type LogStore struct {
	db DBTX
}

// NewLogStore returns a LogStore writing to db.
func NewLogStore(db DBTX) *LogStore {
	return &LogStore{db: db}
}

// InsertLog stores rec. Attribute values that do not encode to JSON are
// stored as their text.
func (s *LogStore) InsertLog(ctx context.Context, rec logging.Record) error {
	var attrs []byte
	if len(rec.Attrs) > 0 {
		var err error
		attrs, err = json.Marshal(jsonAttrs(rec.Attrs))
		if err != nil {
			return fmt.Errorf("encode log attrs: %w", err)
		}
	}

	_, err := s.db.Exec(ctx, insertLogSQL,
		rec.Time, rec.Logger, rec.Level, rec.Message, rec.Source, rec.Func, attrs)
	if err != nil {
		return fmt.Errorf("insert log record: %w", err)
	}
	return nil
}

// Purge deletes records logged before cutoff and returns how many went.
func (s *LogStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeLogsSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge log records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func jsonAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case json.Marshaler:
			out[k] = val
		case error:
			out[k] = val.Error()
		case fmt.Stringer:
			out[k] = val.String()
		default:
			if _, err := json.Marshal(val); err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = val
		}
	}
	return out
}
