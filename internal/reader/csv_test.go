package reader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readAll(t *testing.T, r Reader) []Row {
	t.Helper()
	var rows []Row
	for row, err := range All(r) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestCSVReader_Basic(t *testing.T) {
	path := writeFile(t, "people.csv", "Name;Age\nAna;31\nBruno;45\n")

	r, err := NewCSV(FromPath(path), Options{})
	require.NoError(t, err)
	defer r.Close()

	headers, err := r.Headers()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, headers)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"name": "Ana", "age": "31"}, rows[0])
	assert.Equal(t, Row{"name": "Bruno", "age": "45"}, rows[1])
}

func TestCSVReader_PadsAndTruncates(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a;b;c\n1\n1;2;3;4\n")), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"a": "1", "b": "", "c": ""}, rows[0])
	assert.Equal(t, Row{"a": "1", "b": "2", "c": "3"}, rows[1])
}

func TestCSVReader_SkipsBlankRows(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a;b\n1;2\n;\n  ; \n3;4\n")), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["a"])
	assert.Equal(t, "3", rows[1]["a"])
}

func TestCSVReader_BlankAfterDroppingExtraCells(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a;b\n1;2\n;;x\n3;4\n")), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"a": "1", "b": "2"}, rows[0])
	assert.Equal(t, Row{"a": "3", "b": "4"}, rows[1])
}

func TestCSVReader_Delimiter(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a,b\n\"x,y\",2\n")), Options{Delimiter: ','})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "x,y", rows[0]["a"])
}

func TestCSVReader_SkipsBOM(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("\xEF\xBB\xBFid;name\n1;a\n")), Options{})
	require.NoError(t, err)

	headers, err := r.Headers()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, headers)
}

func TestCSVReader_CoerceNumbers(t *testing.T) {
	src := "id;code;amount\n42;007;1.5\n"

	r, err := NewCSV(FromReader("x.csv", strings.NewReader(src)), Options{CoerceNumbers: true})
	require.NoError(t, err)
	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0]["id"])
	assert.Equal(t, int64(7), rows[0]["code"])
	assert.Equal(t, "1.5", rows[0]["amount"])

	r, err = NewCSV(FromReader("x.csv", strings.NewReader(src)), Options{})
	require.NoError(t, err)
	rows = readAll(t, r)
	assert.Equal(t, "42", rows[0]["id"])
}

func TestCSVReader_Windows1252Cells(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("Nome;Cidade\nJos\xe9;S\xe3o Paulo\n")), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "José", rows[0]["nome"])
	assert.Equal(t, "São Paulo", rows[0]["cidade"])
}

func TestCSVReader_EmptySource(t *testing.T) {
	for name, content := range map[string]string{
		"empty":              "",
		"blank header":       " ; \n1;2\n",
		"leading empty line": "\na;b\n1;2\n",
		"leading CRLF":       "\r\na;b\n1;2\n",
		"BOM then empty":     "\xef\xbb\xbf\na;b\n",
	} {
		t.Run(name, func(t *testing.T) {
			r, err := NewCSV(FromReader("x.csv", strings.NewReader(content)), Options{})
			require.NoError(t, err)

			_, err = r.Headers()
			assert.ErrorIs(t, err, ErrMalformedSource)

			_, err = r.Next()
			assert.ErrorIs(t, err, ErrMalformedSource)
		})
	}
}

func TestCSVReader_HeaderOnly(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a;b\n")), Options{})
	require.NoError(t, err)

	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCSVReader_Close(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a\n1\n")), Options{})
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestCSVReader_MissingFile(t *testing.T) {
	_, err := NewCSV(FromPath(filepath.Join(t.TempDir(), "nope.csv")), Options{})
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestAll_StopsEarly(t *testing.T) {
	r, err := NewCSV(FromReader("x.csv", strings.NewReader("a\n1\n2\n3\n")), Options{})
	require.NoError(t, err)

	n := 0
	for range All(r) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "3", row["a"])
}
