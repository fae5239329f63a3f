package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataimport/internal/logging"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

// stream returns a single-use CSV source.
func stream(content string) *reader.Source {
	return reader.FromReader("data.csv", io.MultiReader(strings.NewReader(content)))
}

func digitsOnly(v any, _ reader.Row) (any, error) {
	s, _ := v.(string)
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, Reject("only digits allowed")
		}
	}
	return s, nil
}

func newImporter(t *testing.T, src *reader.Source, cfg Config) (*Importer, *logging.CaptureHandler) {
	t.Helper()
	capture, logger := logging.NewCapture()
	cfg.Logger = logger
	im, err := New(src, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { im.Close() })
	return im, capture
}

func TestConfigValidate(t *testing.T) {
	noop := func(v any, _ reader.Row) (any, error) { return v, nil }

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{Fields: []string{"a", "b"}, RequiredFields: []string{"a"}, Validators: map[string]Validator{"b": noop}}, ""},
		{"no fields", Config{}, "no fields declared"},
		{"duplicate field", Config{Fields: []string{"a", "a"}}, `field "a" declared twice`},
		{"undeclared required", Config{Fields: []string{"a"}, RequiredFields: []string{"z"}}, `required field "z" is not declared`},
		{"undeclared validator", Config{Fields: []string{"a"}, Validators: map[string]Validator{"z": noop}}, `validator for undeclared field "z"`},
		{"nil validator", Config{Fields: []string{"a"}, Validators: map[string]Validator{"a": nil}}, `nil validator for field "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_Failures(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := []struct {
		name string
		src  *reader.Source
		cfg  Config
		want error
	}{
		{"unknown extension", reader.FromPath(filepath.Join(dir, "notes.txt")), Config{Fields: []string{"a"}}, ErrUnresolvedReader},
		{"missing file", reader.FromPath(filepath.Join(dir, "missing.csv")), Config{Fields: []string{"a"}}, ErrSourceUnreadable},
		{"empty file", reader.FromPath(empty), Config{Fields: []string{"a"}}, ErrMalformedSource},
		{"bad config", stream("a\n1\n"), Config{}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture, logger := logging.NewCapture()
			tt.cfg.Logger = logger

			im, err := New(tt.src, tt.cfg)
			assert.Nil(t, im)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, capture.Messages(logging.LevelCritical), 1)
		})
	}
}

func TestNew_ReadFailureLogsDebugThenCritical(t *testing.T) {
	capture, logger := logging.NewCapture()
	_, err := New(reader.FromPath("people.json"), Config{Fields: []string{"a"}, Logger: logger})
	require.ErrorIs(t, err, ErrUnresolvedReader)

	entries := capture.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, slog.LevelDebug, entries[0].Level)
	assert.Equal(t, logging.LevelCritical, entries[1].Level)
	assert.Equal(t, msgReadFailed, entries[1].Message)
}

func TestNew_ExplicitReader(t *testing.T) {
	src := reader.FromReader("upload", strings.NewReader("a,b\n1,2\n"))
	im, _ := newImporter(t, src, Config{
		Fields:        []string{"a", "b"},
		Reader:        reader.NewCSV,
		ReaderOptions: reader.Options{Delimiter: ','},
	})

	assert.Equal(t, []string{"a", "b"}, im.Headers())
}

func TestNew_WarnsAboutMissingColumns(t *testing.T) {
	_, capture := newImporter(t, stream("a\n1\n"), Config{Fields: []string{"a", "zip"}})
	assert.Equal(t, []string{"Field zip not found in headers"}, capture.Messages(slog.LevelWarn))
}

func TestImporter_LoggerAttributes(t *testing.T) {
	im, capture := newImporter(t, stream("a\n\n"), Config{Name: "people", Fields: []string{"a", "b"}})
	assert.NotEmpty(t, im.ID().String())

	entries := capture.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "people_importer", entries[0].Attrs["importer"])
	assert.Equal(t, im.ID().String(), entries[0].Attrs["import_id"])
}

func TestCleanAll_BlankRowsDoNotConsumeNumbers(t *testing.T) {
	im, _ := newImporter(t, stream("a;b\n1;2\n;\n3;4\n"), Config{Fields: []string{"a", "b"}})

	ok, err := im.IsValid(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	results := im.Results()
	require.Len(t, results, 2)
	assert.Equal(t, reader.Row{"a": "1", "b": "2", "_i": 1}, results[0].Row)
	assert.Equal(t, reader.Row{"a": "3", "b": "4", "_i": 2}, results[1].Row)
}

func TestClean_ValidatorRejection(t *testing.T) {
	im, capture := newImporter(t, stream("code\nabc\n"), Config{
		Fields:     []string{"code"},
		Validators: map[string]Validator{"code": digitsOnly},
	})

	ok, err := im.IsValid(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	results := im.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Valid)
	assert.Nil(t, results[0].Row)

	assert.Equal(t, []int{1}, im.Errors().Lines())
	assert.Equal(t, []string{"only digits allowed"}, im.Errors().Messages(1, "code"))
	assert.Equal(t, []string{"Line 1, field code: only digits allowed"}, capture.Messages(slog.LevelError))
}

func TestClean_RequiredRunsBeforeValidators(t *testing.T) {
	called := 0
	im, _ := newImporter(t, stream("name;code\n;\nana;\n"), Config{
		Fields:         []string{"name", "code"},
		RequiredFields: []string{"name", "code"},
		Validators: map[string]Validator{"code": func(v any, r reader.Row) (any, error) {
			called++
			return v, nil
		}},
	})

	require.NoError(t, im.CleanAll(context.Background()))

	// The reader drops the blank line, so "ana;" is row 1.
	assert.Equal(t, []int{1}, im.Errors().Lines())
	assert.Equal(t, []string{"Field code is required!"}, im.Errors().Messages(1, "code"))
	assert.Nil(t, im.Errors().Messages(1, "name"))
	assert.Zero(t, called)
}

func TestClean_AllRequiredChecked(t *testing.T) {
	im, _ := newImporter(t, stream("a;b;c\n ;;x\n"), Config{
		Fields:         []string{"a", "b", "c"},
		RequiredFields: []string{"a", "b"},
	})

	require.NoError(t, im.CleanAll(context.Background()))
	fe := im.Errors().Line(1)
	require.NotNil(t, fe)
	assert.Equal(t, []string{"a", "b"}, fe.Fields())
}

func TestClean_ContinuesAfterRejectionAndDeduplicates(t *testing.T) {
	im, capture := newImporter(t, stream("a;b;c\nx;y;z\n"), Config{
		Fields: []string{"a", "b", "c"},
		Validators: map[string]Validator{
			"a": func(any, reader.Row) (any, error) { return nil, Reject("bad", "bad", "worse") },
			"b": func(any, reader.Row) (any, error) { return nil, errors.New("plain failure") },
			"c": func(v any, _ reader.Row) (any, error) { return strings.ToUpper(v.(string)), nil },
		},
	})

	require.NoError(t, im.CleanAll(context.Background()))
	assert.Equal(t, []string{"bad", "worse"}, im.Errors().Messages(1, "a"))
	assert.Equal(t, []string{"plain failure"}, im.Errors().Messages(1, "b"))
	assert.Len(t, capture.Messages(slog.LevelError), 3)
}

func TestClean_ReplacesValuesAndFillsMissingFields(t *testing.T) {
	var seen reader.Row
	im, _ := newImporter(t, stream("a\n7\n"), Config{
		Fields: []string{"a", "b"},
		Validators: map[string]Validator{
			"a": func(v any, _ reader.Row) (any, error) { return v.(string) + "!", nil },
			"b": func(v any, row reader.Row) (any, error) {
				seen = row
				return v, nil
			},
		},
	})

	require.NoError(t, im.CleanAll(context.Background()))
	results := im.Results()
	require.Len(t, results, 1)
	assert.Equal(t, reader.Row{"a": "7!", "b": "", "_i": 1}, results[0].Row)
	assert.Equal(t, "7!", seen["a"], "later validators see replaced values")
}

func TestClean_BlankRowSecondLine(t *testing.T) {
	im, capture := newImporter(t, stream("a\n1\n"), Config{Fields: []string{"a"}})

	res := im.Clean(context.Background(), 9, reader.Row{"a": "  "})
	assert.Nil(t, res)
	assert.Contains(t, capture.Messages(slog.LevelWarn), "Line 9 is empty, ignored")
	assert.Empty(t, im.Results())
}

func TestIsValid_RunsOnce(t *testing.T) {
	calls := 0
	im, capture := newImporter(t, stream("code\nabc\n12\n"), Config{
		Fields: []string{"code"},
		Validators: map[string]Validator{"code": func(v any, r reader.Row) (any, error) {
			calls++
			return digitsOnly(v, r)
		}},
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := im.IsValid(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, capture.Messages(slog.LevelError), 1)
}

func TestCleanAll_MemoizedAcrossPasses(t *testing.T) {
	calls := 0
	im, _ := newImporter(t, reader.FromReader("x.csv", strings.NewReader("code\nabc\n12\n")), Config{
		Fields: []string{"code"},
		Validators: map[string]Validator{"code": func(v any, r reader.Row) (any, error) {
			calls++
			return digitsOnly(v, r)
		}},
	})

	ctx := context.Background()
	require.NoError(t, im.CleanAll(ctx))
	require.NoError(t, im.CleanAll(ctx))

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1}, im.Errors().Lines(), "error map is rebuilt from the cache")
}

type countingObserver struct {
	cleaned, valid, saved, failed int
}

func (o *countingObserver) RowCleaned(_ int, valid bool) {
	o.cleaned++
	if valid {
		o.valid++
	}
}

func (o *countingObserver) RowSaved(_ int, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.saved++
}

func TestImporter_Observer(t *testing.T) {
	obs := &countingObserver{}
	im, _ := newImporter(t, stream("code\n1\nx\n2\n"), Config{
		Fields:     []string{"code"},
		Validators: map[string]Validator{"code": digitsOnly},
		Observer:   obs,
	})

	_, err := im.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, countingObserver{cleaned: 3, valid: 2, saved: 2}, *obs)
}

func TestImporter_ContextCancelled(t *testing.T) {
	im, _ := newImporter(t, stream("a\n1\n"), Config{Fields: []string{"a"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := im.IsValid(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_ImportID(t *testing.T) {
	id := uuid.New()
	im, _ := newImporter(t, stream("a\n1\n"), Config{Name: "fixed", Fields: []string{"a"}, ID: id})
	assert.Equal(t, id, im.ID())

	other, _ := newImporter(t, stream("a\n1\n"), Config{Fields: []string{"a"}})
	assert.NotEqual(t, uuid.Nil, other.ID())
}

func TestClean_ValidatorMutationsDoNotLeak(t *testing.T) {
	im, _ := newImporter(t, stream("a;b\n1;2\n"), Config{
		Fields: []string{"a", "b"},
		Validators: map[string]Validator{
			"b": func(v any, row reader.Row) (any, error) {
				row["a"] = "HACKED"
				row[reader.OrdinalKey] = 99
				return v, nil
			},
		},
	})

	require.NoError(t, im.CleanAll(context.Background()))
	results := im.Results()
	require.Len(t, results, 1)
	assert.Equal(t, reader.Row{"a": "1", "b": "2", "_i": 1}, results[0].Row)
}

func TestCleanAll_ExtraCellsDoNotMakeRowsNonBlank(t *testing.T) {
	im, capture := newImporter(t, stream("a;b\n1;2\n;;x\n3;4\n"), Config{Fields: []string{"a", "b"}})

	require.NoError(t, im.CleanAll(context.Background()))
	results := im.Results()
	require.Len(t, results, 2)
	assert.Equal(t, reader.Row{"a": "1", "b": "2", "_i": 1}, results[0].Row)
	assert.Equal(t, reader.Row{"a": "3", "b": "4", "_i": 2}, results[1].Row)
	assert.Empty(t, capture.Messages(slog.LevelError))
}

func TestImporter_ClosedRejectsPasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	require.NoError(t, os.WriteFile(path, []byte("code\n1\n2\n"), 0o644))

	im, _ := newImporter(t, reader.FromPath(path), Config{Fields: []string{"code"}})
	require.NoError(t, im.CleanAll(context.Background()))
	require.NoError(t, im.Close())

	assert.ErrorIs(t, im.CleanAll(context.Background()), ErrSourceUnreadable)
	_, err := im.SaveAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.NoError(t, im.Close(), "closing twice is harmless")
}
