package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Report summarizes one validate or import run.
type Report struct {
	ImportID   string         `json:"import_id"`
	Definition string         `json:"definition"`
	Source     string         `json:"source"`
	Headers    []string       `json:"headers"`
	Rows       int            `json:"rows"`
	ValidRows  int            `json:"valid_rows"`
	Valid      bool           `json:"valid"`
	Saved      int            `json:"saved"`
	Errors     *core.ErrorMap `json:"errors"`
	DurationMs int64          `json:"duration_ms"`
}

// InvalidRows returns the number of rows with at least one error.
func (r *Report) InvalidRows() int { return r.Rows - r.ValidRows }

func newReport(im *core.Importer, src *reader.Source, valid bool, start time.Time) *Report {
	results := im.Results()
	validRows := 0
	for _, res := range results {
		if res.Valid {
			validRows++
		}
	}

	return &Report{
		ImportID:   im.ID().String(),
		Definition: im.Name(),
		Source:     src.Name(),
		Headers:    im.Headers(),
		Rows:       len(results),
		ValidRows:  validRows,
		Valid:      valid,
		Errors:     im.Errors(),
		DurationMs: time.Since(start).Milliseconds(),
	}
}

func newImportID() uuid.UUID { return uuid.New() }
