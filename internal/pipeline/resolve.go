package pipeline

import (
	"context"
	"errors"
	"sort"

	"github.com/a3tai/mcp-pdf-sequencer/internal/archive"
	"github.com/a3tai/mcp-pdf-sequencer/internal/assemble"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/metrics"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
)

// Archive names for the assembly modes.
const (
	RenameArchiveName   = "output.zip"
	AnnotateArchiveName = "edited_files.zip"
)

// ErrNoTable is returned when a run that resolves facility ids has no lookup
// table.
var ErrNoTable = errors.New("lookup table is required")

// ResolveResult is the outcome of scanning a batch for facility ids. It keeps
// the loaded documents so that Assemble can copy pages from them.
type ResolveResult struct {
	Results    []lookup.Resolution `json:"results"`
	Duplicates []lookup.Duplicate  `json:"duplicates,omitempty"`
	Malformed  int                 `json:"malformed_lines,omitempty"`
	Errors     []ItemError         `json:"errors,omitempty"`

	docs map[string]*document.Document
}

// Documents returns the names of the documents still in the working set.
func (r *ResolveResult) Documents() []string {
	names := make([]string, 0, len(r.docs))
	for n := range r.docs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Forget removes a document from the working set. Pages of it that resolved
// are skipped by a later Assemble.
func (r *ResolveResult) Forget(name string) {
	delete(r.docs, name)
}

// Unresolved returns the pages that did not resolve, in scan order.
func (r *ResolveResult) Unresolved() []lookup.Resolution {
	return assemble.Unresolved(r.Results)
}

// Resolve extracts the facility id of every page and resolves it against the
// lookup table. Results are in source order, then page order.
func (s *Service) Resolve(ctx context.Context, sources []Source, cfg RunConfig) (res *ResolveResult, err error) {
	log, finish := s.begin(ModeResolve, len(sources))
	defer func() { finish(err) }()

	res, err = s.resolve(ctx, ModeResolve, sources, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("pages", len(res.Results)).
		Int("unresolved", len(res.Unresolved())).
		Int("errors", len(res.Errors)).
		Msg("facility ids resolved")
	return res, nil
}

func (s *Service) resolve(ctx context.Context, mode Mode, sources []Source, cfg RunConfig) (*ResolveResult, error) {
	if cfg.Table == nil {
		return nil, ErrNoTable
	}
	for _, d := range cfg.Table.Duplicates() {
		s.log.Warn().Str("facility_id", d.FacilityID).Strs("sequences", d.Sequences).Msg("facility id bound to several sequences, first wins")
	}

	limit := s.limit(cfg)
	docs, errs, err := s.load(ctx, mode, limit, sources)
	if err != nil {
		return nil, err
	}

	texts, scanErrs, err := s.scanPages(ctx, mode, limit, docs, (*document.Document).CompactText)
	if err != nil {
		return nil, err
	}

	res := &ResolveResult{
		Duplicates: cfg.Table.Duplicates(),
		Malformed:  cfg.Table.Malformed(),
		Errors:     append(errs, scanErrs...),
		docs:       make(map[string]*document.Document, len(docs)),
	}

	failed := make(map[assemble.PageRef]bool, len(scanErrs))
	for _, e := range scanErrs {
		failed[assemble.PageRef{Doc: e.Doc, Page: e.Page}] = true
	}

	for d, doc := range docs {
		res.docs[doc.Name()] = doc
		for p, text := range texts[d] {
			page := p + 1
			if failed[assemble.PageRef{Doc: doc.Name(), Page: page}] {
				continue
			}
			id, _ := pattern.FindFacility(text)
			r := lookup.Resolution{
				Doc:        doc.Name(),
				Page:       page,
				FacilityID: id,
				Sequence:   cfg.Table.Resolve(id),
			}
			status := metrics.StatusOK
			if !r.Resolved() {
				status = metrics.StatusUnresolved
			}
			s.metrics.Page(string(mode), status)
			res.Results = append(res.Results, r)
		}
	}
	return res, nil
}

// OutputInfo describes one assembled document.
type OutputInfo struct {
	Name     string             `json:"name"`
	Sequence string             `json:"sequence"`
	Pages    []assemble.PageRef `json:"pages"`
	Skipped  []assemble.PageRef `json:"skipped,omitempty"`
}

// AssembleResult reports a rename or annotate run.
type AssembleResult struct {
	Archive     ArchiveInfo         `json:"archive"`
	Outputs     []OutputInfo        `json:"outputs"`
	Resolutions []lookup.Resolution `json:"resolutions"`
	Unresolved  []lookup.Resolution `json:"unresolved,omitempty"`
	Errors      []ItemError         `json:"errors,omitempty"`
}

// Assemble groups resolved pages by sequence and writes one document per
// group into a single archive. With annotate set every page is stamped with
// the work order and sequence. Groups are built concurrently but the archive
// lists them in first-seen order. If the archive cannot be written the
// result is still returned with the error; its Archive is then empty and
// Outputs lists documents that were built but not delivered.
func (s *Service) Assemble(ctx context.Context, rr *ResolveResult, cfg RunConfig, annotate bool, sink Sink) (*AssembleResult, error) {
	mode, name := ModeRename, RenameArchiveName
	asm := &assemble.Assembler{Naming: cfg.Naming}
	if annotate {
		mode, name = ModeAnnotate, AnnotateArchiveName
		asm.Annotate = &assemble.AnnotateOptions{WorkOrder: cfg.WorkOrder}
	}

	groups := assemble.Group(rr.Results)
	outputs, buildErrs, err := fanOut(ctx, s.limit(cfg), len(groups), func(_ context.Context, g int) (assemble.Output, error) {
		return asm.Build(groups[g], rr.docs)
	})
	if err != nil {
		return nil, err
	}

	res := &AssembleResult{
		Resolutions: rr.Results,
		Unresolved:  rr.Unresolved(),
		Errors:      append([]ItemError(nil), rr.Errors...),
	}

	var (
		entries []pendingEntry
		extra   []archive.ManifestItem
		failed  []ItemError
	)
	for g, out := range outputs {
		if buildErrs[g] != nil {
			s.log.Warn().Str("sequence", groups[g].Sequence).Err(buildErrs[g]).Msg("sequence group not assembled")
			failed = append(failed, ItemError{Sequence: groups[g].Sequence, Stage: StageAssemble, Err: buildErrs[g]})
			continue
		}
		pages := make([]int, len(out.Pages))
		for i, p := range out.Pages {
			pages[i] = p.Page
		}
		entries = append(entries, pendingEntry{
			name: out.Name,
			data: out.Data,
			item: archive.ManifestItem{Sequence: out.Sequence, Pages: pages, Status: archive.StatusOK},
		})
		for _, sk := range out.Skipped {
			extra = append(extra, archive.ManifestItem{Source: sk.Doc, Page: sk.Page, Sequence: out.Sequence, Status: archive.StatusSkipped})
			s.metrics.Page(string(mode), metrics.StatusSkipped)
		}
		res.Outputs = append(res.Outputs, OutputInfo{Name: out.Name, Sequence: out.Sequence, Pages: out.Pages, Skipped: out.Skipped})
	}
	for _, u := range res.Unresolved {
		extra = append(extra, archive.ManifestItem{Source: u.Doc, Page: u.Page, Status: archive.StatusUnresolved})
	}
	res.Errors = append(res.Errors, failed...)
	extra = append(extra, failedItems(res.Errors)...)

	info, err := s.writeArchive(ctx, sink, name, mode, entries, extra)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, ItemError{Doc: name, Stage: StageArchive, Err: err})
		return res, err
	}
	// entries may have been renamed on collision
	for i := range res.Outputs {
		res.Outputs[i].Name = info.Entries[i]
	}
	res.Archive = info
	return res, nil
}

// Rename resolves every page and writes one SEQ document per sequence into
// output.zip.
func (s *Service) Rename(ctx context.Context, sources []Source, cfg RunConfig, sink Sink) (*AssembleResult, error) {
	return s.resolveAndAssemble(ctx, ModeRename, sources, cfg, sink)
}

// Annotate is Rename with the work-order box stamped on every page, written
// into edited_files.zip.
func (s *Service) Annotate(ctx context.Context, sources []Source, cfg RunConfig, sink Sink) (*AssembleResult, error) {
	return s.resolveAndAssemble(ctx, ModeAnnotate, sources, cfg, sink)
}

func (s *Service) resolveAndAssemble(ctx context.Context, mode Mode, sources []Source, cfg RunConfig, sink Sink) (res *AssembleResult, err error) {
	log, finish := s.begin(mode, len(sources))
	defer func() { finish(err) }()

	rr, err := s.resolve(ctx, mode, sources, cfg)
	if err != nil {
		return nil, err
	}
	res, err = s.Assemble(ctx, rr, cfg, mode == ModeAnnotate, sink)
	if err != nil {
		return res, err
	}
	log.Info().
		Str("archive", res.Archive.Name).
		Int("outputs", len(res.Outputs)).
		Int("unresolved", len(res.Unresolved)).
		Int("errors", len(res.Errors)).
		Msg("sequence documents assembled")
	return res, nil
}
