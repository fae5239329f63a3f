package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataimport/internal/logging"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Log message formats. They are part of the observable contract: audit
// trails parse them.
const (
	msgRequired    = "Field %s is required!"
	msgFieldError  = "Line %d, field %s: %s"
	msgEmptyLine   = "Line %d is empty, ignored"
	msgReadFailed  = "Something went wrong while trying to read the file!"
	msgMissingCol  = "Field %s not found in headers"
	msgSaved       = "Line %d saved successfully"
	msgSaveStopped = "Process stopped with error %T: %v"
)

// Observer is notified of per-row outcomes.
type Observer interface {
	RowCleaned(line int, valid bool)
	RowSaved(line int, err error)
}

// Config declares an importer. It must not be modified after New.
type Config struct {
	// Name identifies the importer in logs and metrics.
	Name string

	// Fields are the normalized header names the importer cares about, in
	// validation order.
	Fields []string

	// RequiredFields must be non-empty in every row. Subset of Fields.
	RequiredFields []string

	// Validators maps field names to their validator. Keys must be in Fields.
	Validators map[string]Validator

	// Reader forces a reader factory. Nil selects one by file extension.
	Reader        reader.Factory
	ReaderOptions reader.Options

	// ID identifies the import. The zero value is replaced by a random id.
	ID uuid.UUID

	Logger   *slog.Logger
	Saver    Saver
	Observer Observer
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	var errs []string

	if len(c.Fields) == 0 {
		errs = append(errs, "no fields declared")
	}
	declared := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, "empty field name")
			continue
		}
		if declared[f] {
			errs = append(errs, fmt.Sprintf("field %q declared twice", f))
		}
		declared[f] = true
	}
	for _, f := range c.RequiredFields {
		if !declared[f] {
			errs = append(errs, fmt.Sprintf("required field %q is not declared", f))
		}
	}
	keys := make([]string, 0, len(c.Validators))
	for f := range c.Validators {
		keys = append(keys, f)
	}
	slices.Sort(keys)
	for _, f := range keys {
		if !declared[f] {
			errs = append(errs, fmt.Sprintf("validator for undeclared field %q", f))
		}
		if c.Validators[f] == nil {
			errs = append(errs, fmt.Sprintf("nil validator for field %q", f))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Result is the cached outcome of cleaning one row.
type Result struct {
	Line  int
	Row   reader.Row // cleaned row, nil when invalid
	Valid bool

	errs *FieldErrors
}

// Errors returns the field errors of an invalid row.
func (r *Result) Errors() *FieldErrors { return r.errs }

// Importer validates the rows of one source against a Config and hands
// valid rows to a Saver. An Importer is not safe for concurrent use.
type Importer struct {
	cfg     Config
	src     *reader.Source
	factory reader.Factory
	logger  *slog.Logger
	id      uuid.UUID
	saver   Saver

	rd       reader.Reader
	consumed bool
	closed   bool
	headers  []string

	results  map[int]*Result
	errors   *ErrorMap
	complete bool
}

// New resolves a reader for src and reads its header line. Unreadable or
// malformed sources, unknown formats and inconsistent configurations are
// reported here; an Importer that was returned is ready to validate.
func New(src *reader.Source, cfg Config) (*Importer, error) {
	ctx := context.Background()

	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("importer", loggerName(cfg.Name), "import_id", id.String())

	if err := cfg.Validate(); err != nil {
		logging.Critical(ctx, logger, "invalid importer configuration", "error", err)
		return nil, err
	}

	factory := cfg.Reader
	if factory == nil {
		f, err := reader.ForName(src.Name())
		if err != nil {
			logReadFailure(ctx, logger, src, err)
			return nil, err
		}
		factory = f
	}

	rd, err := factory(src, cfg.ReaderOptions)
	if err != nil {
		logReadFailure(ctx, logger, src, err)
		return nil, err
	}

	headers, err := rd.Headers()
	if err != nil {
		rd.Close()
		logReadFailure(ctx, logger, src, err)
		return nil, err
	}

	im := &Importer{
		cfg:     cfg,
		src:     src,
		factory: factory,
		logger:  logger,
		id:      id,
		saver:   cfg.Saver,
		rd:      rd,
		headers: headers,
		results: make(map[int]*Result),
		errors:  NewErrorMap(),
	}
	if im.saver == nil {
		im.saver = logSaver{logger: logger}
	}

	for _, f := range cfg.Fields {
		if !slices.Contains(headers, f) {
			logger.Warn(fmt.Sprintf(msgMissingCol, f), "field", f)
		}
	}

	return im, nil
}

func loggerName(name string) string {
	if name == "" {
		return "importer"
	}
	return name + "_importer"
}

func logReadFailure(ctx context.Context, logger *slog.Logger, src *reader.Source, err error) {
	logger.DebugContext(ctx, "reader setup failed", "source", src.String(), "error", err, "type", fmt.Sprintf("%T", err))
	logging.Critical(ctx, logger, msgReadFailed, "source", src.Name(), "error", err)
}

// ID identifies this import in logs and persisted rows.
func (im *Importer) ID() uuid.UUID { return im.id }

// Name returns the configured importer name.
func (im *Importer) Name() string { return im.cfg.Name }

// Logger returns the importer's logger.
func (im *Importer) Logger() *slog.Logger { return im.logger }

// Headers returns the normalized headers of the source.
func (im *Importer) Headers() []string { return slices.Clone(im.headers) }

// Errors returns the error map of the latest pass.
func (im *Importer) Errors() *ErrorMap { return im.errors }

// Results returns every cached result in row order.
func (im *Importer) Results() []*Result {
	lines := make([]int, 0, len(im.results))
	for l := range im.results {
		lines = append(lines, l)
	}
	slices.Sort(lines)

	out := make([]*Result, len(lines))
	for i, l := range lines {
		out[i] = im.results[l]
	}
	return out
}

// Close releases the current reader. Later passes fail with
// ErrSourceUnreadable.
func (im *Importer) Close() error {
	im.closed = true
	if im.rd == nil {
		return nil
	}
	err := im.rd.Close()
	im.rd = nil
	return err
}

// IsValid runs a validation pass unless one has already completed and
// reports whether every row passed.
func (im *Importer) IsValid(ctx context.Context) (bool, error) {
	if !im.complete && len(im.results) == 0 {
		if err := im.CleanAll(ctx); err != nil {
			return false, err
		}
	}
	return im.errors.Empty(), nil
}

// CleanAll resets the error map and cleans every row of the source.
// Rows cleaned before are not validated again.
func (im *Importer) CleanAll(ctx context.Context) error {
	im.errors.reset()
	for _, err := range im.pass(ctx, false) {
		if err != nil {
			return err
		}
	}
	return nil
}

// Clean validates one raw row under row number line and caches the
// outcome. It returns nil for a blank row.
func (im *Importer) Clean(ctx context.Context, line int, raw reader.Row) *Result {
	if res, ok := im.results[line]; ok {
		im.errors.merge(line, res.errs)
		return res
	}

	if raw.Blank() {
		im.logger.WarnContext(ctx, fmt.Sprintf(msgEmptyLine, line), "line", line)
		return nil
	}

	row := raw.Clone()
	row[reader.OrdinalKey] = line

	var fe *FieldErrors
	fail := func(field, msg string) {
		if fe == nil {
			fe = newFieldErrors()
		}
		fe.add(field, msg)
	}

	for _, name := range im.cfg.RequiredFields {
		if reader.IsEmpty(row[name]) {
			fail(name, fmt.Sprintf(msgRequired, name))
		}
	}

	for _, name := range im.cfg.Fields {
		if fe != nil && slices.Contains(fe.fields, name) {
			continue
		}
		value, ok := row[name]
		if !ok {
			value = ""
			row[name] = value
		}
		validate := im.cfg.Validators[name]
		if validate == nil {
			continue
		}
		cleaned, err := validate(value, row.Clone())
		if err != nil {
			for _, m := range messagesOf(err) {
				fail(name, m)
			}
			continue
		}
		row[name] = cleaned
	}

	var res *Result
	if fe != nil {
		res = &Result{Line: line, errs: fe}
		im.errors.merge(line, fe)
		for _, f := range fe.fields {
			for _, m := range fe.msgs[f] {
				im.logger.ErrorContext(ctx, fmt.Sprintf(msgFieldError, line, f, m), "line", line, "field", f)
			}
		}
	} else {
		res = &Result{Line: line, Row: row, Valid: true}
	}
	im.results[line] = res

	if im.cfg.Observer != nil {
		im.cfg.Observer.RowCleaned(line, res.Valid)
	}
	return res
}

// pass yields the result of every row in order. A completed pass is
// replayed from the cache; otherwise the source is read, reopening it when
// the current reader has already been consumed, and the error map is reset
// first if resetOnRead is set. Blank rows yield nothing.
func (im *Importer) pass(ctx context.Context, resetOnRead bool) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		if im.closed {
			yield(nil, fmt.Errorf("%w: %s importer is closed", ErrSourceUnreadable, im.src.Name()))
			return
		}
		if im.complete {
			for _, res := range im.Results() {
				im.errors.merge(res.Line, res.errs)
				if !yield(res, nil) {
					return
				}
			}
			return
		}

		rd, err := im.acquire()
		if err != nil {
			logReadFailure(ctx, im.logger, im.src, err)
			yield(nil, err)
			return
		}
		if resetOnRead {
			im.errors.reset()
		}

		line := 0
		for raw, err := range reader.All(rd) {
			if err != nil {
				logReadFailure(ctx, im.logger, im.src, err)
				yield(nil, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			line++
			res := im.Clean(ctx, line, raw)
			if res == nil {
				continue
			}
			if !yield(res, nil) {
				return
			}
		}
		im.complete = true
	}
}

// acquire returns a reader positioned before the first data row.
func (im *Importer) acquire() (reader.Reader, error) {
	if im.rd != nil && !im.consumed {
		im.consumed = true
		return im.rd, nil
	}

	if !im.src.Reopenable() {
		return nil, fmt.Errorf("%w: %s cannot be read twice", ErrSourceUnreadable, im.src.Name())
	}
	if im.rd != nil {
		im.rd.Close()
		im.rd = nil
	}

	rd, err := im.factory(im.src, im.cfg.ReaderOptions)
	if err != nil {
		return nil, err
	}
	if _, err := rd.Headers(); err != nil {
		rd.Close()
		return nil, err
	}
	im.rd = rd
	im.consumed = true
	return rd, nil
}
