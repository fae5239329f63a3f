package reader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type sourceKind int

const (
	kindPath sourceKind = iota
	kindFile
	kindStream
)

// Source identifies where tabular data comes from: a filesystem path, an
// already open file, or a named byte stream.
//
// Paths and files can be opened any number of times. A stream can be opened
// once unless it also implements io.Seeker.
type Source struct {
	kind   sourceKind
	path   string
	file   *os.File
	stream io.Reader
	name   string
	opened bool
}

// FromPath returns a source reading the file at path.
func FromPath(path string) *Source {
	return &Source{kind: kindPath, path: path, name: path}
}

// FromFile returns a source reading an open file. The file stays owned by
// the caller and is never closed by readers, so it can be rewound for
// another pass after a reader is closed.
func FromFile(f *os.File) *Source {
	return &Source{kind: kindFile, file: f, name: f.Name()}
}

// FromReader returns a source reading r. The name is used for extension
// based reader lookup only.
func FromReader(name string, r io.Reader) *Source {
	return &Source{kind: kindStream, stream: r, name: name}
}

// Name returns the path or name of the source.
func (s *Source) Name() string { return s.name }

// Ext returns the lowercased file extension without the leading dot.
func (s *Source) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(s.name)), ".")
}

// Reopenable reports whether Open can be called again after the first use.
func (s *Source) Reopenable() bool {
	if s.kind != kindStream {
		return true
	}
	_, ok := s.stream.(io.Seeker)
	return ok
}

// Open returns a fresh reader positioned at the start of the data. Errors
// wrap ErrSourceUnreadable.
func (s *Source) Open() (io.ReadCloser, error) {
	switch s.kind {
	case kindPath:
		f, err := os.Open(s.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
		}
		return f, nil

	case kindFile:
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			// Not seekable (pipe, socket): only the first open can succeed.
			if s.opened {
				return nil, fmt.Errorf("%w: %s cannot be rewound: %v", ErrSourceUnreadable, s.name, err)
			}
		}
		s.opened = true
		return io.NopCloser(s.file), nil

	default:
		if s.stream == nil {
			return nil, fmt.Errorf("%w: nil stream", ErrSourceUnreadable)
		}
		if s.opened {
			seeker, ok := s.stream.(io.Seeker)
			if !ok {
				return nil, fmt.Errorf("%w: stream %s already consumed", ErrSourceUnreadable, s.name)
			}
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
			}
		}
		s.opened = true
		return io.NopCloser(s.stream), nil
	}
}

func (s *Source) String() string {
	switch s.kind {
	case kindPath:
		return "path:" + s.name
	case kindFile:
		return "file:" + s.name
	default:
		return "stream:" + s.name
	}
}
