package reader

import "errors"

// Error kinds surfaced by readers. Callers test them with errors.Is; the
// concrete error usually wraps the underlying I/O or parse failure.
var (
	// ErrSourceUnreadable means the source could not be opened or read.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrMalformedSource means the bytes are not a valid instance of the
	// selected format, or the header line is missing.
	ErrMalformedSource = errors.New("malformed source")

	// ErrUnresolvedReader means no reader could be selected for the source.
	ErrUnresolvedReader = errors.New("no reader for source")
)
