package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
	"github.com/a3tai/mcp-pdf-sequencer/internal/report"
)

// ReportName is the default spreadsheet name for search and analyze.
const ReportName = "pdf_keyword_analyzer.xlsx"

// ErrNoKeywords is returned by search and analyze without keywords.
var ErrNoKeywords = errors.New("at least one keyword is required")

// ReportResult holds the rows of a search or analyze run, sorted by keyword.
type ReportResult struct {
	Rows   []report.Row `json:"rows"`
	Pages  int          `json:"pages"`
	Errors []ItemError  `json:"errors,omitempty"`
}

// Search reports every sentence that contains a keyword, one row per
// sentence, keyword and page.
func (s *Service) Search(ctx context.Context, sources []Source, cfg RunConfig) (*ReportResult, error) {
	return s.analyzeText(ctx, ModeSearch, sources, cfg, func(keyword, file string, page, i, n int, sentence string) []report.Row {
		return []report.Row{report.KeywordRow(keyword, file, page, i, n, sentence)}
	})
}

// Analyze reports rule citations found in keyword-matching sentences, at most
// one per rule family and sentence, enriched from cfg.Definitions.
func (s *Service) Analyze(ctx context.Context, sources []Source, cfg RunConfig) (*ReportResult, error) {
	return s.analyzeText(ctx, ModeAnalyze, sources, cfg, func(_, file string, page, i, n int, sentence string) []report.Row {
		var rows []report.Row
		for _, c := range s.citations.Find(sentence) {
			rows = append(rows, report.CitationRow(c, cfg.Definitions[c.Family.Name], file, page, i, n))
		}
		return rows
	})
}

type rowBuilder func(keyword, file string, page, i, n int, sentence string) []report.Row

func (s *Service) analyzeText(ctx context.Context, mode Mode, sources []Source, cfg RunConfig, build rowBuilder) (res *ReportResult, err error) {
	log, finish := s.begin(mode, len(sources))
	defer func() { finish(err) }()

	if len(cfg.Keywords) == 0 {
		return nil, ErrNoKeywords
	}

	limit := s.limit(cfg)
	docs, errs, err := s.load(ctx, mode, limit, sources)
	if err != nil {
		return nil, err
	}
	texts, scanErrs, err := s.scanPages(ctx, mode, limit, docs, (*document.Document).Text)
	if err != nil {
		return nil, err
	}

	res = &ReportResult{Errors: append(errs, scanErrs...)}
	for d, doc := range docs {
		res.Pages += len(texts[d])
		for _, kw := range cfg.Keywords {
			for p, text := range texts[d] {
				sentences := s.sentences.Matching(text, kw)
				for i, sentence := range sentences {
					res.Rows = append(res.Rows, build(kw, doc.Name(), p+1, i+1, len(sentences), sentence)...)
				}
			}
		}
	}
	report.Sort(res.Rows)

	s.metrics.ReportRows(string(mode), len(res.Rows))
	log.Info().Int("rows", len(res.Rows)).Int("pages", res.Pages).Msg("report built")
	return res, nil
}

// ExportReport writes rows as a spreadsheet named name (ReportName when
// empty) to sink.
func (s *Service) ExportReport(rows []report.Row, sink Sink, name string) (string, error) {
	if name == "" {
		name = ReportName
	}
	art, err := sink.Create(name)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := report.WriteXLSX(art, rows); err != nil {
		_ = art.Discard()
		return "", err
	}
	if err := art.Commit(); err != nil {
		return "", fmt.Errorf("failed to deliver %s: %w", name, err)
	}
	return name, nil
}

// DefinitionSources maps a rule family name to a definitions file path or URL.
type DefinitionSources map[string]string

// LoadDefinitions fetches the definitions table of every family. A source
// that cannot be fetched leaves its family with an empty table and a
// warning; citation extraction still runs without enrichment.
func (s *Service) LoadDefinitions(ctx context.Context, sources DefinitionSources) (map[string]lookup.Definitions, []string) {
	defs := make(map[string]lookup.Definitions, len(pattern.Families))
	var warnings []string
	for _, f := range pattern.Families {
		src := sources[f.Name]
		d, err := lookup.FetchDefinitions(ctx, s.opts.HTTPClient, src)
		if err != nil {
			s.log.Warn().Str("family", f.Name).Str("source", src).Err(err).Msg("rule definitions unavailable")
			warnings = append(warnings, fmt.Sprintf("%s definitions unavailable: %v", f.Name, err))
			d = lookup.Definitions{}
		}
		defs[f.Name] = d
	}
	return defs, warnings
}
