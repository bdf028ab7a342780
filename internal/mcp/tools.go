package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-sequencer/internal/assemble"
	"github.com/a3tai/mcp-pdf-sequencer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
	"github.com/a3tai/mcp-pdf-sequencer/internal/report"
	"github.com/a3tai/mcp-pdf-sequencer/internal/workspace"
)

// maxListed caps how many per-item lines a tool result shows.
const maxListed = 20

// sources loads the PDFs named by the "paths" argument.
func (s *Server) sources(ctx context.Context, request mcp.CallToolRequest) ([]pipeline.Source, []workspace.Rejected, error) {
	paths, err := request.RequireStringSlice("paths")
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("paths cannot be empty")
	}
	return s.loader.Load(ctx, paths)
}

// table reads the lookup table from "table_text" or the "table" file.
func (s *Server) table(request mcp.CallToolRequest) (*lookup.Table, error) {
	if text := request.GetString("table_text", ""); strings.TrimSpace(text) != "" {
		return lookup.ParseTable(text), nil
	}
	path := request.GetString("table", "")
	if path == "" {
		return nil, fmt.Errorf("either 'table' or 'table_text' is required")
	}
	text, err := s.loader.ReadText(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup table: %w", err)
	}
	return lookup.ParseTable(text), nil
}

func (s *Server) outputSink() (*workspace.DirSink, error) {
	return workspace.NewDirSink(s.config.OutputDirectory)
}

func (s *Server) runConfig() pipeline.RunConfig {
	return pipeline.RunConfig{Concurrency: s.config.Concurrency}
}

func (s *Server) handleSplitPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, rejected, err := s.sources(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sink, err := s.outputSink()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Split(ctx, sources, s.runConfig(), sink)
	if err != nil {
		return partialError(err, result != nil, func() string { return formatSplitResult(result, rejected, sink) }), nil
	}
	return mcp.NewToolResultText(formatSplitResult(result, rejected, sink)), nil
}

func (s *Server) handleResolveSequences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := s.table(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sources, rejected, err := s.sources(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := s.runConfig()
	cfg.Table = table
	result, err := s.service.Resolve(ctx, sources, cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatResolveResult(result, rejected)), nil
}

func (s *Server) handleRenameBySequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.assemble(ctx, request, false)
}

func (s *Server) handleAnnotateSequences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.assemble(ctx, request, true)
}

func (s *Server) assemble(ctx context.Context, request mcp.CallToolRequest, annotate bool) (*mcp.CallToolResult, error) {
	cfg := s.runConfig()

	naming, err := assemble.ParseNaming(request.GetString("naming", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.Naming = naming

	if annotate {
		workOrder, err := request.RequireString("work_order")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.WorkOrder = workOrder
	}

	if cfg.Table, err = s.table(request); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sources, rejected, err := s.sources(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sink, err := s.outputSink()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run := s.service.Rename
	if annotate {
		run = s.service.Annotate
	}
	result, err := run(ctx, sources, cfg, sink)
	if err != nil {
		return partialError(err, result != nil, func() string { return formatAssembleResult(result, rejected, sink) }), nil
	}
	return mcp.NewToolResultText(formatAssembleResult(result, rejected, sink)), nil
}

func (s *Server) handleKeywordSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.report(ctx, request, false)
}

func (s *Server) handleRuleAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.report(ctx, request, true)
}

func (s *Server) report(ctx context.Context, request mcp.CallToolRequest, analyze bool) (*mcp.CallToolResult, error) {
	keywords, err := request.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg := s.runConfig()
	cfg.Keywords = pattern.ParseKeywords(keywords)
	if len(cfg.Keywords) == 0 {
		return mcp.NewToolResultError(pipeline.ErrNoKeywords.Error()), nil
	}

	sources, rejected, err := s.sources(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sink, err := s.outputSink()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		result   *pipeline.ReportResult
		warnings []string
	)
	if analyze {
		cfg.Definitions, warnings = s.definitions(ctx)
		result, err = s.service.Analyze(ctx, sources, cfg)
	} else {
		result, err = s.service.Search(ctx, sources, cfg)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name, err := s.service.ExportReport(result.Rows, sink, request.GetString("output", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatReportResult(result, sink.Path(name), rejected, warnings)), nil
}

// definitions fetches the configured rule definition tables within the
// fetch timeout.
func (s *Server) definitions(ctx context.Context) (map[string]lookup.Definitions, []string) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()
	return s.service.LoadDefinitions(ctx, pipeline.DefinitionSources{
		pattern.GO95.Name:  s.config.GO95Source,
		pattern.GO128.Name: s.config.GO128Source,
	})
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, _, err := s.loader.Discover([]string{"."})
	if err != nil && !errors.Is(err, workspace.ErrNoInputs) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Input Directory: %s\n", s.config.PDFDirectory)
	text += fmt.Sprintf("📦 Output Directory: %s\n", s.config.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("⚙️  Concurrency: %d\n\n", s.config.Concurrency)

	if len(files) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(files))
		for i, f := range files {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s\n", i+1, f)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in input directory\n\n"
	}

	text += "📜 Rule Families:\n"
	sources := map[string]string{pattern.GO95.Name: s.config.GO95Source, pattern.GO128.Name: s.config.GO128Source}
	for _, f := range pattern.Families {
		src := sources[f.Name]
		if src == "" {
			src = "no definitions configured"
		}
		text += fmt.Sprintf("  • %s (%s)\n", f.Name, src)
	}

	text += "\n🛠️  Available Tools:\n"
	for _, name := range s.Tools() {
		desc := descriptions.GetToolDescription(name)
		summary, _, _ := strings.Cut(desc, "\n")
		text += fmt.Sprintf("  • %s: %s\n", name, summary)
	}

	text += "\nTypical workflow: pdf_resolve_sequences to check the lookup table, " +
		"then pdf_rename_by_sequence or pdf_annotate_sequences to write the archive.\n"
	return mcp.NewToolResultText(text), nil
}

// Formatting helpers

// partialError reports a failed run, followed by what the run completed
// before failing when there is a partial result.
func partialError(err error, partial bool, format func() string) *mcp.CallToolResult {
	if !partial {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("%v\n\nCompleted before the failure:\n%s", err, format()))
}

func formatSplitResult(result *pipeline.SplitResult, rejected []workspace.Rejected, sink *workspace.DirSink) string {
	text := fmt.Sprintf("Split %d page(s) into %d archive(s)\n", result.Pages, len(result.Archives))
	for _, a := range result.Archives {
		text += fmt.Sprintf("\n%s (%d pages, job %s)\n", sink.Path(a.Name), len(a.Entries), a.JobID)
		text += fmt.Sprintf("   Source: %s\n", a.Source)
	}
	text += formatErrors(result.Errors)
	text += formatRejected(rejected)
	return text
}

func formatResolveResult(result *pipeline.ResolveResult, rejected []workspace.Rejected) string {
	unresolved := result.Unresolved()
	text := fmt.Sprintf("Resolved %d of %d page(s)\n\n", len(result.Results)-len(unresolved), len(result.Results))

	var sb strings.Builder
	_ = report.WriteResolutionTable(&sb, result.Results)
	text += sb.String()

	if len(result.Duplicates) > 0 {
		text += "\n⚠️  Facility ids bound to several sequences (first wins):\n"
		for _, d := range result.Duplicates {
			text += fmt.Sprintf("   %s: %s\n", d.FacilityID, strings.Join(d.Sequences, ", "))
		}
	}
	if result.Malformed > 0 {
		text += fmt.Sprintf("\n⚠️  %d lookup table line(s) without a tab separator were ignored\n", result.Malformed)
	}
	text += formatErrors(result.Errors)
	text += formatRejected(rejected)
	return text
}

func formatAssembleResult(result *pipeline.AssembleResult, rejected []workspace.Rejected, sink *workspace.DirSink) string {
	var text string
	if result.Archive.Name == "" {
		text = fmt.Sprintf("Built %d document(s), no archive was written\n", len(result.Outputs))
	} else {
		text = fmt.Sprintf("Wrote %d document(s) to %s (job %s)\n", len(result.Outputs), sink.Path(result.Archive.Name), result.Archive.JobID)
	}
	for i, o := range result.Outputs {
		if i >= maxListed {
			text += fmt.Sprintf("   ... and %d more\n", len(result.Outputs)-maxListed)
			break
		}
		text += fmt.Sprintf("   %s: %d page(s)\n", o.Name, len(o.Pages))
	}

	if len(result.Unresolved) > 0 {
		text += fmt.Sprintf("\n⚠️  %d page(s) without a sequence were left out:\n", len(result.Unresolved))
		for i, u := range result.Unresolved {
			if i >= maxListed {
				text += fmt.Sprintf("   ... and %d more\n", len(result.Unresolved)-maxListed)
				break
			}
			id := u.FacilityID
			if id == "" {
				id = "no facility id"
			}
			text += fmt.Sprintf("   %s page %d (%s)\n", u.Doc, u.Page, id)
		}
	}
	text += formatErrors(result.Errors)
	text += formatRejected(rejected)
	return text
}

func formatReportResult(result *pipeline.ReportResult, path string, rejected []workspace.Rejected, warnings []string) string {
	text := fmt.Sprintf("Found %d row(s) across %d page(s)\n", len(result.Rows), result.Pages)
	text += fmt.Sprintf("Spreadsheet: %s\n", path)

	counts := make(map[string]int)
	var order []string
	for _, r := range result.Rows {
		if counts[r.Keyword] == 0 {
			order = append(order, r.Keyword)
		}
		counts[r.Keyword]++
	}
	if len(order) > 0 {
		text += "\nRows per keyword:\n"
		for _, k := range order {
			text += fmt.Sprintf("   %s: %d\n", k, counts[k])
		}
	}

	for _, w := range warnings {
		text += fmt.Sprintf("\n⚠️  %s\n", w)
	}
	text += formatErrors(result.Errors)
	text += formatRejected(rejected)
	return text
}

func formatErrors(errs []pipeline.ItemError) string {
	if len(errs) == 0 {
		return ""
	}
	text := fmt.Sprintf("\n❌ %d item(s) failed:\n", len(errs))
	for i, e := range errs {
		if i >= maxListed {
			text += fmt.Sprintf("   ... and %d more\n", len(errs)-maxListed)
			break
		}
		text += fmt.Sprintf("   %s\n", e.Error())
	}
	return text
}

func formatRejected(rejected []workspace.Rejected) string {
	if len(rejected) == 0 {
		return ""
	}
	text := fmt.Sprintf("\n⚠️  %d input file(s) skipped:\n", len(rejected))
	for _, r := range rejected {
		text += fmt.Sprintf("   %s: %s\n", r.Path, r.Reason)
	}
	return text
}
