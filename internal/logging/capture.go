package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is one record seen by a CaptureHandler.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler keeps every record in memory. It is meant for tests that
// assert on emitted log lines.
type CaptureHandler struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
	group   string
}

// NewCapture returns a handler and a logger writing to it.
func NewCapture() (*CaptureHandler, *slog.Logger) {
	h := &CaptureHandler{mu: &sync.Mutex{}, entries: &[]Entry{}}
	return h, slog.New(h)
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		attrs[key] = a.Value.Resolve().Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.entries = append(*h.entries, Entry{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

// Entries returns a copy of everything captured so far.
func (h *CaptureHandler) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), *h.entries...)
}

// Messages returns the messages logged at exactly lvl, in order.
func (h *CaptureHandler) Messages(lvl slog.Level) []string {
	var out []string
	for _, e := range h.Entries() {
		if e.Level == lvl {
			out = append(out, e.Message)
		}
	}
	return out
}

// Reset drops all captured entries.
func (h *CaptureHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.entries = (*h.entries)[:0]
}
