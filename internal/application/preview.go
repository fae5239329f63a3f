package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

// DefaultPreviewRows is the number of sample rows returned by Preview.
const DefaultPreviewRows = 5

// Preview describes how a file lines up with a definition before any
// validation runs.
type Preview struct {
	Definition string       `json:"definition"`
	Source     string       `json:"source"`
	Headers    []string     `json:"headers"`
	Missing    []string     `json:"missing"`
	Extra      []string     `json:"extra"`
	Samples    []reader.Row `json:"samples"`
}

// Preview reads the headers and the first rows of src without validating
// them. limit <= 0 selects DefaultPreviewRows.
func (s *Service) Preview(ctx context.Context, name string, src *reader.Source, limit int) (*Preview, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}
	cfg, err := def.Config()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPreviewRows
	}

	factory := cfg.Reader
	if factory == nil {
		if factory, err = reader.ForName(src.Name()); err != nil {
			return nil, err
		}
	}
	rd, err := factory(src, mergeOptions(cfg.ReaderOptions, s.opts.Reader))
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	headers, err := rd.Headers()
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Definition: def.Name,
		Source:     src.Name(),
		Headers:    headers,
		Missing:    []string{},
		Extra:      []string{},
		Samples:    []reader.Row{},
	}
	for _, f := range cfg.Fields {
		if !slices.Contains(headers, f) {
			p.Missing = append(p.Missing, f)
		}
	}
	for _, h := range headers {
		if !slices.Contains(cfg.Fields, h) {
			p.Extra = append(p.Extra, h)
		}
	}

	for len(p.Samples) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		p.Samples = append(p.Samples, row)
	}
	return p, nil
}
