package core

import (
	"errors"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Error kinds returned by the Importer. Reader kinds are re-exported so
// callers only need this package.
var (
	ErrSourceUnreadable = reader.ErrSourceUnreadable
	ErrMalformedSource  = reader.ErrMalformedSource
	ErrUnresolvedReader = reader.ErrUnresolvedReader

	// ErrInvalidConfig means the importer configuration is inconsistent.
	ErrInvalidConfig = errors.New("invalid importer configuration")

	// ErrSaveFailed wraps the error returned by a Saver. The save pass that
	// produced it has stopped.
	ErrSaveFailed = errors.New("save failed")
)
