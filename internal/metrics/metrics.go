// Package metrics provides Prometheus instrumentation for the sequencer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusUnresolved = "unresolved"
	StatusSkipped    = "skipped"
)

// Metrics holds the sequencer's collectors, all registered on Registry.
type Metrics struct {
	Registry *prometheus.Registry

	DocumentsTotal      *prometheus.CounterVec
	PagesTotal          *prometheus.CounterVec
	ArchiveEntriesTotal *prometheus.CounterVec
	ReportRowsTotal     *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	RunsInFlight        prometheus.Gauge
	ToolCallsTotal      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfseq_documents_total",
				Help: "Source documents processed, by mode and status",
			},
			[]string{"mode", "status"},
		),

		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfseq_pages_total",
				Help: "Pages processed, by mode and status",
			},
			[]string{"mode", "status"},
		),

		ArchiveEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfseq_archive_entries_total",
				Help: "Documents written into archives, by mode",
			},
			[]string{"mode"},
		),

		ReportRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfseq_report_rows_total",
				Help: "Report rows produced, by mode",
			},
			[]string{"mode"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdfseq_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode", "status"},
		),

		RunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pdfseq_runs_in_flight",
				Help: "Pipeline runs currently executing",
			},
		),

		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfseq_tool_calls_total",
				Help: "MCP tool calls, by tool and status",
			},
			[]string{"tool", "status"},
		),
	}
}

// StartRun marks a run as started and returns the function that records its
// outcome.
func (m *Metrics) StartRun(mode string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.RunsInFlight.Inc()
	return func(err error) {
		m.RunsInFlight.Dec()
		status := StatusOK
		if err != nil {
			status = StatusFailed
		}
		m.RunDuration.WithLabelValues(mode, status).Observe(time.Since(start).Seconds())
	}
}

// Document counts one source document.
func (m *Metrics) Document(mode, status string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(mode, status).Inc()
}

// Page counts one page.
func (m *Metrics) Page(mode, status string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(mode, status).Inc()
}

// ArchiveEntries counts entries written to an archive.
func (m *Metrics) ArchiveEntries(mode string, n int) {
	if m == nil {
		return
	}
	m.ArchiveEntriesTotal.WithLabelValues(mode).Add(float64(n))
}

// ReportRows counts produced report rows.
func (m *Metrics) ReportRows(mode string, n int) {
	if m == nil {
		return
	}
	m.ReportRowsTotal.WithLabelValues(mode).Add(float64(n))
}

// ToolCall counts one MCP tool call.
func (m *Metrics) ToolCall(tool string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
}
