package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataimport/internal/core"
)

var _ core.Observer = (*Observer)(nil)

func TestObserver(t *testing.T) {
	m := New()
	obs := m.ForImporter("contacts")

	obs.RowCleaned(1, true)
	obs.RowCleaned(2, false)
	obs.RowCleaned(3, true)
	obs.RowSaved(1, nil)
	obs.RowSaved(3, errors.New("duplicate key"))
	m.ImportFinished("contacts", "failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsCleaned.WithLabelValues("contacts", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsCleaned.WithLabelValues("contacts", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsSaved.WithLabelValues("contacts", "saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsSaved.WithLabelValues("contacts", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues("contacts", "failed")))

	other := m.ForImporter("customers")
	other.RowCleaned(1, true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsCleaned.WithLabelValues("contacts", "valid")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ForImporter("contacts").RowCleaned(1, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `dataimport_rows_cleaned_total{importer="contacts",outcome="valid"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
