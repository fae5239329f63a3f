package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataimport/internal/logging"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

type recordingSaver struct {
	lines    []int
	failOn   int
	postRuns int
}

func (s *recordingSaver) Save(_ context.Context, line int, row reader.Row) (any, error) {
	if line == s.failOn {
		return nil, errors.New("boom")
	}
	s.lines = append(s.lines, line)
	return row["code"], nil
}

func (s *recordingSaver) PostSaveAll(context.Context) error {
	s.postRuns++
	return nil
}

func codeConfig(saver Saver) Config {
	return Config{
		Name:       "codes",
		Fields:     []string{"code"},
		Validators: map[string]Validator{"code": digitsOnly},
		Saver:      saver,
	}
}

func TestSaveAll_DefaultSaverLogsAndReturnsRows(t *testing.T) {
	im, capture := newImporter(t, stream("code\n1\nx\n2\n"), Config{Fields: []string{"code"}, Validators: map[string]Validator{"code": digitsOnly}})

	out, err := im.SaveAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, reader.Row{"code": "1", "_i": 1}, out[0])
	assert.Equal(t, reader.Row{"code": "2", "_i": 3}, out[1])
	assert.Equal(t, []string{"Line 1 saved successfully", "Line 3 saved successfully"}, capture.Messages(slog.LevelInfo))
}

func TestSaveAll_CountMatchesValidRows(t *testing.T) {
	saver := &recordingSaver{}
	im, _ := newImporter(t, stream("code\n1\nx\n2\ny\n3\n"), codeConfig(saver))

	ctx := context.Background()
	ok, err := im.IsValid(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	out, err := im.SaveAll(ctx)
	require.NoError(t, err)

	valid := 0
	for _, r := range im.Results() {
		if r.Valid {
			valid++
		}
	}
	assert.Len(t, out, valid)
	assert.Equal(t, []any{"1", "2", "3"}, out)
	assert.Equal(t, []int{1, 3, 5}, saver.lines)
	assert.Equal(t, 1, saver.postRuns)
}

func TestSaveAll_ReplaysAfterValidationOnSingleUseSource(t *testing.T) {
	saver := &recordingSaver{}
	im, _ := newImporter(t, stream("code\n1\n2\n"), codeConfig(saver))

	ctx := context.Background()
	_, err := im.IsValid(ctx)
	require.NoError(t, err)

	_, err = im.SaveAll(ctx)
	require.NoError(t, err)
	_, err = im.SaveAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1, 2}, saver.lines)
	assert.Equal(t, 2, saver.postRuns)
}

func TestSaveAll_FailureStopsPass(t *testing.T) {
	saver := &recordingSaver{failOn: 2}
	im, capture := newImporter(t, stream("code\n1\n2\n3\n"), codeConfig(saver))

	out, err := im.SaveAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, []any{"1"}, out, "results before the failure are kept")
	assert.Equal(t, []int{1}, saver.lines)
	assert.Zero(t, saver.postRuns)

	crit := capture.Entries()
	var found bool
	for _, e := range crit {
		if e.Level == logging.LevelCritical {
			found = true
			assert.Equal(t, "Process stopped with error *errors.errorString: boom", e.Message)
			assert.EqualValues(t, 2, e.Attrs["line"])
			assert.Contains(t, e.Attrs["row"], "code: 2")
		}
	}
	assert.True(t, found, "critical log expected")
	assert.Equal(t, "SAV001", MapError(err).Code)
}

func TestSaveIter_Lazy(t *testing.T) {
	saver := &recordingSaver{}
	im, _ := newImporter(t, stream("code\n1\n2\n3\n"), codeConfig(saver))

	var got []any
	for v, err := range im.SaveIter(context.Background()) {
		require.NoError(t, err)
		got = append(got, v)
		assert.Len(t, saver.lines, len(got), "rows are saved as they are pulled")
	}
	assert.Equal(t, []any{"1", "2", "3"}, got)
	assert.Equal(t, 1, saver.postRuns)
}

func TestSaveIter_StopEarlySkipsPostHook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.csv")
	require.NoError(t, os.WriteFile(path, []byte("code\n1\n2\n3\n"), 0o644))

	saver := &recordingSaver{}
	im, _ := newImporter(t, reader.FromPath(path), codeConfig(saver))
	ctx := context.Background()

	for range im.SaveIter(ctx) {
		break
	}
	assert.Equal(t, []int{1}, saver.lines)
	assert.Zero(t, saver.postRuns)

	// A later pass reopens the file.
	out, err := im.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "2", "3"}, out)
	assert.Equal(t, 1, saver.postRuns)
}

func TestSaveIter_FailureYieldedOnce(t *testing.T) {
	saver := &recordingSaver{failOn: 1}
	im, _ := newImporter(t, stream("code\n1\n2\n"), codeConfig(saver))

	var errs []error
	for _, err := range im.SaveIter(context.Background()) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrSaveFailed)
}

func TestSaveAll_SecondPassOnConsumedStream(t *testing.T) {
	saver := &recordingSaver{}
	im, _ := newImporter(t, stream("code\n1\n2\n"), codeConfig(saver))
	ctx := context.Background()

	for range im.SaveIter(ctx) {
		break
	}

	_, err := im.SaveAll(ctx)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestSaverFunc(t *testing.T) {
	var lines []int
	saver := SaverFunc(func(_ context.Context, line int, _ reader.Row) (any, error) {
		lines = append(lines, line)
		return line * 10, nil
	})
	im, _ := newImporter(t, reader.FromReader("x.csv", strings.NewReader("code\n5\n6\n")), codeConfig(saver))

	out, err := im.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{10, 20}, out)
	assert.Equal(t, []int{1, 2}, lines)
}

type failingPostSaver struct{ recordingSaver }

func (s *failingPostSaver) PostSaveAll(context.Context) error {
	return errors.New("flush failed")
}

func TestSaveAll_PostSaveFailureIsSaveFailure(t *testing.T) {
	saver := &failingPostSaver{}
	im, capture := newImporter(t, stream("code\n1\n2\n"), codeConfig(saver))

	out, err := im.SaveAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Contains(t, err.Error(), "flush failed")
	assert.Len(t, out, 2, "rows saved before the hook are returned")
	assert.Equal(t, []int{1, 2}, saver.lines)
	assert.Contains(t, capture.Messages(slog.LevelError), "post save hook failed")
}
