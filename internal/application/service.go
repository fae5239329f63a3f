// Package application wires importer definitions, readers, persistence,
// metrics and logging into the validate, import and preview operations
// used by the CLI and the HTTP server.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/metrics"
	"github.com/JonMunkholm/dataimport/internal/reader"
	"github.com/JonMunkholm/dataimport/internal/schema"
	"github.com/JonMunkholm/dataimport/internal/store"
)

// ErrUnknownDefinition is returned for names missing from the schema
// registry.
var ErrUnknownDefinition = errors.New("unknown definition")

// ErrNoDatabase is returned by operations that need a database when none
// is configured.
var ErrNoDatabase = errors.New("no database configured")

// Options configures a Service. Every field is optional.
type Options struct {
	// Reader supplies defaults for settings a definition leaves unset.
	Reader reader.Options

	// DB receives saved rows. Without it saved rows are only logged.
	DB store.DBTX

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Timeout bounds a single operation. Zero means no limit.
	Timeout time.Duration
}

// Service runs imports against the registered definitions.
type Service struct {
	opts   Options
	logger *slog.Logger
}

// NewService creates a new Service instance.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{opts: opts, logger: logger}
}

// HasDatabase reports whether saved rows are persisted.
func (s *Service) HasDatabase() bool { return s.opts.DB != nil }

// Definitions returns every registered definition.
func (s *Service) Definitions() []schema.Definition { return schema.All() }

// Definition returns the named definition.
func (s *Service) Definition(name string) (schema.Definition, error) {
	def, ok := schema.Get(name)
	if !ok {
		return schema.Definition{}, fmt.Errorf("%w %q", ErrUnknownDefinition, name)
	}
	return def, nil
}

// Runs lists recent completed imports.
func (s *Service) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if s.opts.DB == nil {
		return nil, ErrNoDatabase
	}
	return store.ListRuns(ctx, s.opts.DB, limit)
}

// Reset deletes what earlier imports of the named definition saved. An
// empty name clears every import.
func (s *Service) Reset(ctx context.Context, name string) (store.ResetResult, error) {
	if s.opts.DB == nil {
		return store.ResetResult{}, ErrNoDatabase
	}
	if name != "" {
		if _, err := s.Definition(name); err != nil {
			return store.ResetResult{}, err
		}
	}

	res, err := store.Reset(ctx, s.opts.DB, name)
	if err != nil {
		return res, err
	}
	s.loggerFor(ctx).Warn("imports reset", "definition", name, "rows", res.Rows, "runs", res.Runs)
	return res, nil
}

// Validate checks every row of src against the named definition.
func (s *Service) Validate(ctx context.Context, name string, src *reader.Source) (*Report, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	im, err := s.open(ctx, name, src, nil)
	if err != nil {
		return nil, err
	}
	defer im.Close()

	valid, err := im.IsValid(ctx)
	if err != nil {
		s.finished(name, "failed")
		return nil, err
	}

	rep := newReport(im, src, valid, start)
	s.finished(name, outcome(valid))
	return rep, nil
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// Strict refuses to save anything when a row is invalid.
	Strict bool
}

// Import validates src and saves its valid rows. The report is returned
// even when saving fails, with Saved counting the rows written before the
// failure.
func (s *Service) Import(ctx context.Context, name string, src *reader.Source, opts ImportOptions) (*Report, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()

	var rows *store.RowStore
	id := newImportID()
	if s.opts.DB != nil {
		rows = store.NewRowStore(s.opts.DB, id, name, src.Name())
	}

	im, err := s.open(ctx, name, src, func(cfg *core.Config) {
		cfg.ID = id
		if rows != nil {
			cfg.Saver = rows
		}
	})
	if err != nil {
		return nil, err
	}
	defer im.Close()

	valid, err := im.IsValid(ctx)
	if err != nil {
		s.finished(name, "failed")
		return nil, err
	}

	rep := newReport(im, src, valid, start)
	if !valid && opts.Strict {
		s.finished(name, "invalid")
		return rep, nil
	}

	saved, err := im.SaveAll(ctx)
	rep.Saved = len(saved)
	rep.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		s.finished(name, "failed")
		return rep, err
	}

	s.finished(name, "saved")
	return rep, nil
}

// open builds an Importer for the named definition. tune, when set, may
// adjust the configuration before the Importer is created.
func (s *Service) open(ctx context.Context, name string, src *reader.Source, tune func(*core.Config)) (*core.Importer, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}

	cfg, err := def.Config()
	if err != nil {
		return nil, err
	}
	cfg.ReaderOptions = mergeOptions(cfg.ReaderOptions, s.opts.Reader)
	cfg.Logger = s.loggerFor(ctx)
	if s.opts.Metrics != nil {
		cfg.Observer = s.opts.Metrics.ForImporter(name)
	}
	if tune != nil {
		tune(&cfg)
	}

	im, err := core.New(src, cfg)
	if err != nil {
		s.finished(name, "failed")
		return nil, err
	}
	return im, nil
}

// mergeOptions fills the zero fields of opts from defaults.
func mergeOptions(opts, defaults reader.Options) reader.Options {
	if opts.Delimiter == 0 {
		opts.Delimiter = defaults.Delimiter
	}
	if opts.Sheet == "" {
		opts.Sheet = defaults.Sheet
	}
	if len(opts.Codecs) == 0 {
		opts.Codecs = defaults.Codecs
	}
	opts.CoerceNumbers = opts.CoerceNumbers || defaults.CoerceNumbers
	return opts
}

func (s *Service) loggerFor(ctx context.Context) *slog.Logger {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return s.logger.With("request_id", reqID)
	}
	return s.logger
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *Service) finished(name, result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ImportFinished(name, result)
	}
}

func outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
