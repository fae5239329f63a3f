package logging

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"
)

// Record is a log entry as persisted by a RecordStore.
type Record struct {
	Time    time.Time
	Logger  string
	Level   string
	Message string
	Source  string // file:line of the call site
	Func    string
	Attrs   map[string]any
}

// RecordStore persists log records.
type RecordStore interface {
	InsertLog(ctx context.Context, rec Record) error
}

// DBHandler writes every enabled record to a RecordStore. The "importer"
// attribute, when present, is stored as the logger name.
type DBHandler struct {
	store RecordStore
	level slog.Leveler
	attrs []slog.Attr
}

// NewDBHandler returns a handler persisting records at or above level.
func NewDBHandler(store RecordStore, level slog.Leveler) *DBHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &DBHandler{store: store, level: level}
}

func (h *DBHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *DBHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := Record{
		Time:    r.Time,
		Level:   LevelName(r.Level),
		Message: r.Message,
		Attrs:   make(map[string]any),
	}

	collect := func(a slog.Attr) bool {
		if a.Key == "importer" {
			rec.Logger = a.Value.String()
			return true
		}
		rec.Attrs[a.Key] = a.Value.Resolve().Any()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			rec.Source = f.File + ":" + strconv.Itoa(f.Line)
		}
		rec.Func = f.Function
	}

	return h.store.InsertLog(ctx, rec)
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

// WithGroup is a no-op; persisted attributes are flat.
func (h *DBHandler) WithGroup(string) slog.Handler { return h }

// Tee fans records out to several handlers.
type Tee []slog.Handler

func (t Tee) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (t Tee) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t Tee) WithGroup(name string) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
