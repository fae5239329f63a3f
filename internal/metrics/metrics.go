// Package metrics exposes prometheus counters for import outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the import counters. One value is shared by every import;
// ForImporter binds it to a single importer name.
type Metrics struct {
	registry *prometheus.Registry

	rowsCleaned *prometheus.CounterVec
	rowsSaved   *prometheus.CounterVec
	imports     *prometheus.CounterVec
}

// New registers the counters on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsCleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataimport",
			Name:      "rows_cleaned_total",
			Help:      "Rows validated, by importer and outcome.",
		}, []string{"importer", "outcome"}),
		rowsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataimport",
			Name:      "rows_saved_total",
			Help:      "Rows handed to the saver, by importer and outcome.",
		}, []string{"importer", "outcome"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataimport",
			Name:      "imports_total",
			Help:      "Finished imports, by importer and result.",
		}, []string{"importer", "result"}),
	}

	m.registry.MustRegister(
		m.rowsCleaned,
		m.rowsSaved,
		m.imports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ImportFinished counts one import with result "valid", "invalid",
// "saved" or "failed".
func (m *Metrics) ImportFinished(importer, result string) {
	m.imports.WithLabelValues(importer, result).Inc()
}

// ForImporter returns a core.Observer recording under importer.
func (m *Metrics) ForImporter(importer string) *Observer {
	return &Observer{
		valid:     m.rowsCleaned.WithLabelValues(importer, "valid"),
		invalid:   m.rowsCleaned.WithLabelValues(importer, "invalid"),
		saved:     m.rowsSaved.WithLabelValues(importer, "saved"),
		saveError: m.rowsSaved.WithLabelValues(importer, "failed"),
	}
}

// Observer implements core.Observer on top of prometheus counters.
type Observer struct {
	valid, invalid   prometheus.Counter
	saved, saveError prometheus.Counter
}

func (o *Observer) RowCleaned(_ int, valid bool) {
	if valid {
		o.valid.Inc()
		return
	}
	o.invalid.Inc()
}

func (o *Observer) RowSaved(_ int, err error) {
	if err != nil {
		o.saveError.Inc()
		return
	}
	o.saved.Inc()
}
