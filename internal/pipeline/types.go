// Package pipeline runs the sequencer modes over a batch of source documents:
// split, resolve, rename, annotate, keyword search and rule analysis.
//
// Every mode loads documents and scans pages as bounded concurrent tasks,
// buffers per-task results by position, and builds its outputs only after
// every task has joined, so outputs never depend on completion order.
package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/a3tai/mcp-pdf-sequencer/internal/assemble"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
)

// Mode names a pipeline mode. It labels metrics, logs and manifests.
type Mode string

const (
	ModeSplit    Mode = "split"
	ModeResolve  Mode = "resolve"
	ModeRename   Mode = "rename"
	ModeAnnotate Mode = "annotate"
	ModeSearch   Mode = "search"
	ModeAnalyze  Mode = "analyze"
)

// Stage names the step an item failed in.
type Stage string

const (
	StageLoad     Stage = "load"
	StageRender   Stage = "render"
	StageExtract  Stage = "extract"
	StageAssemble Stage = "assemble"
	StageArchive  Stage = "archive"
)

// Source is one input document.
type Source struct {
	Name string
	Data []byte
}

// ItemError is a failure scoped to one document, page or sequence group. It
// is reported alongside successful results instead of failing the batch.
type ItemError struct {
	Doc      string
	Page     int
	Sequence string
	Stage    Stage
	Err      error
}

func (e ItemError) Error() string {
	switch {
	case e.Sequence != "":
		return fmt.Sprintf("%s sequence %s: %v", e.Stage, e.Sequence, e.Err)
	case e.Page > 0:
		return fmt.Sprintf("%s %s page %d: %v", e.Stage, e.Doc, e.Page, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Doc, e.Err)
	}
}

func (e ItemError) Unwrap() error {
	return e.Err
}

func (e ItemError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Doc      string `json:"file_name,omitempty"`
		Page     int    `json:"page,omitempty"`
		Sequence string `json:"sequence,omitempty"`
		Stage    Stage  `json:"stage"`
		Error    string `json:"error"`
	}{e.Doc, e.Page, e.Sequence, e.Stage, fmt.Sprint(e.Err)})
}

// RunConfig is the immutable per-run input supplied by the caller.
type RunConfig struct {
	// Table resolves facility ids for resolve, rename and annotate.
	Table *lookup.Table
	// Keywords drive search and analyze.
	Keywords []string
	// WorkOrder is printed in the annotation box.
	WorkOrder string
	// Definitions enrich citations, keyed by rule family name.
	Definitions map[string]lookup.Definitions
	// Naming selects output document names for rename and annotate.
	Naming assemble.Naming
	// Concurrency overrides the service task cap when positive.
	Concurrency int
}

// Options configures a Service.
type Options struct {
	// Concurrency caps concurrently running tasks per fan-out level.
	Concurrency int
	// MaxFileSize rejects larger sources. Zero disables the check.
	MaxFileSize int64
	// Rasterizer renders pages for split. Defaults to MuPDF at 2x.
	Rasterizer document.Rasterizer
	// HTTPClient fetches remote rule definitions.
	HTTPClient *http.Client
}

// ArchiveInfo describes an archive written to a Sink.
type ArchiveInfo struct {
	Name    string   `json:"name"`
	Source  string   `json:"source,omitempty"`
	JobID   string   `json:"job_id"`
	Entries []string `json:"entries"`
}
