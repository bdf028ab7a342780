package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Document("split", StatusOK)
	m.Document("split", StatusOK)
	m.Document("split", StatusFailed)
	m.Page("rename", StatusUnresolved)
	m.ArchiveEntries("rename", 3)
	m.ReportRows("search", 5)
	m.ToolCall("pdf_split_pages", nil)
	m.ToolCall("pdf_split_pages", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("split", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("split", StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("rename", StatusUnresolved)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArchiveEntriesTotal.WithLabelValues("rename")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ReportRowsTotal.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("pdf_split_pages", StatusFailed)))
}

func TestMetrics_StartRun(t *testing.T) {
	m := New()

	done := m.StartRun("annotate")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsInFlight))
	done(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsInFlight))

	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration, "pdfseq_run_duration_seconds"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Document("split", StatusOK)
		m.Page("split", StatusOK)
		m.ArchiveEntries("split", 1)
		m.ReportRows("search", 1)
		m.ToolCall("x", nil)
		m.StartRun("split")(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Document("resolve", StatusOK)

	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pdfseq_documents_total{mode="resolve",status="ok"} 1`)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewServer_Addr(t *testing.T) {
	s := NewServer("127.0.0.1", 9100, New(), zerolog.Nop())
	assert.Equal(t, "127.0.0.1:9100", s.Addr())
}
