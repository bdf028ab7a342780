package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document/pdftest"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document/rastertest"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
)

type harness struct {
	in  string
	out string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	orig := rasterizer
	rasterizer = &rastertest.Blank{}
	t.Cleanup(func() { rasterizer = orig })

	h := &harness{in: t.TempDir(), out: filepath.Join(t.TempDir(), "out")}
	h.write(t, "a.pdf", pdftest.Build(pdftest.TextPage("Pole", "01339008.0221700", "0")))
	h.write(t, "b.pdf", pdftest.Build(pdftest.TextPage("Pole", "01339008.0221700", "1")))
	h.write(t, "lookup.txt", []byte("1010\t01339008.02217001\n"))
	return h
}

func (h *harness) write(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.in, name), data, 0o600))
}

// run executes a subcommand against the harness directories.
func (h *harness) run(t *testing.T, name string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{name, "--dir", h.in, "--outdir", h.out, "--loglevel", "error"}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "COMMANDS:")

	stderr.Reset()
	assert.Equal(t, exitUsage, run(context.Background(), []string{"merge"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "merge"`)

	assert.Equal(t, exitOK, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "PDF Sequencer")
	assert.Contains(t, stdout.String(), "Version: ")

	stdout.Reset()
	assert.Equal(t, exitOK, run(context.Background(), []string{"help"}, &stdout, &stderr))
	for name := range commands {
		assert.Contains(t, stdout.String(), name)
	}
}

func TestRun_FlagErrors(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "split")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, errNoPaths.Error())

	code, _, _ = h.run(t, "split", "--help")
	assert.Equal(t, exitOK, code)

	code, _, stderr = h.run(t, "split", "--table", "lookup.txt", "a.pdf")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "unknown flag")
}

func TestRun_Split(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run(t, "split", "a.pdf", "b.pdf")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Split 2 page(s) into 2 archive(s)")
	assert.FileExists(t, filepath.Join(h.out, "a_pages.zip"))
	assert.FileExists(t, filepath.Join(h.out, "b_pages.zip"))
}

func TestRun_Resolve(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run(t, "resolve", "--table", "lookup.txt", ".")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "fileName")
	assert.Contains(t, stdout, "0133900802217001")
	assert.Contains(t, stdout, "1010")
	assert.Contains(t, stdout, "not found")
	assert.NoDirExists(t, h.out)

	code, _, stderr = h.run(t, "resolve", "a.pdf")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "--table is required")
}

func TestRun_RenameJSON(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run(t, "rename", "--table", "lookup.txt", "--json", "a.pdf", "b.pdf")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "unresolved: a.pdf page 1")

	var res pipeline.AssembleResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "SEQ1010.pdf", res.Outputs[0].Name)
	assert.FileExists(t, filepath.Join(h.out, pipeline.RenameArchiveName))
}

func TestRun_Annotate(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "annotate", "--table", "lookup.txt", "b.pdf")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "--work-order is required")

	code, stdout, stderr := h.run(t, "annotate", "--table", "lookup.txt", "--work-order", "WO-7", "--naming", "merged-pages", "b.pdf")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "1010sequenceMERGpage1.pdf")
	assert.FileExists(t, filepath.Join(h.out, pipeline.AnnotateArchiveName))
}

func TestRun_SearchAndAnalyze(t *testing.T) {
	h := newHarness(t)
	h.write(t, "report.pdf", pdftest.Build(pdftest.TextPage("The pole fails GO 95, Rule 31.1 here. Nothing else.")))

	code, stdout, stderr := h.run(t, "search", "--keywords", "pole", "report.pdf")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Found 1 row(s) across 1 page(s)")
	assert.FileExists(t, filepath.Join(h.out, pipeline.ReportName))

	code, stdout, stderr = h.run(t, "analyze", "--keywords", "pole", "--output", "rules.xlsx", "--go95", filepath.Join(h.in, "missing.txt"), "report.pdf")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Found 1 row(s)")
	assert.Contains(t, stderr, "GO 95 definitions unavailable")
	assert.FileExists(t, filepath.Join(h.out, "rules.xlsx"))

	code, _, stderr = h.run(t, "search", "--keywords", " , ", "report.pdf")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, pipeline.ErrNoKeywords.Error())
}
