package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-sequencer/internal/archive"
	"github.com/a3tai/mcp-pdf-sequencer/internal/assemble"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/metrics"
)

// SplitResult reports a split run.
type SplitResult struct {
	Archives []ArchiveInfo `json:"archives"`
	Pages    int           `json:"pages"`
	Errors   []ItemError   `json:"errors,omitempty"`
}

// SplitArchiveName is the archive name for a source: the part of its base
// name before ".pdf", followed by "_pages.zip".
func SplitArchiveName(source string) string {
	base := filepath.Base(source)
	if stem, _, ok := strings.Cut(base, ".pdf"); ok && stem != "" {
		base = stem
	}
	return base + "_pages.zip"
}

// Split rebuilds every page of every source as a rasterized single-page
// document and writes one archive of pages per source. Archives are written
// only after every page of every source has been rendered. If an archive
// cannot be written, the result so far is returned with the error: archives
// already delivered plus every item error.
func (s *Service) Split(ctx context.Context, sources []Source, cfg RunConfig, sink Sink) (res *SplitResult, err error) {
	log, finish := s.begin(ModeSplit, len(sources))
	defer func() { finish(err) }()

	limit := s.limit(cfg)
	docs, errs, err := s.load(ctx, ModeSplit, limit, sources)
	if err != nil {
		return nil, err
	}

	renderers := make([]document.PageRenderer, len(docs))
	_, openErrs, err := fanOut(ctx, limit, len(docs), func(_ context.Context, d int) (struct{}, error) {
		r, err := s.opts.Rasterizer.Open(docs[d])
		renderers[d] = r
		return struct{}{}, err
	})
	defer func() {
		for d, r := range renderers {
			if r == nil {
				continue
			}
			if cerr := r.Close(); cerr != nil {
				s.log.Warn().Str("doc", docs[d].Name()).Err(cerr).Msg("failed to close renderer")
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	// every page of every opened document in one pool
	var refs []pageRef
	for _, ref := range allPages(docs) {
		if openErrs[ref.d] == nil {
			refs = append(refs, ref)
		}
	}
	pages, pageErrs, err := fanOut(ctx, limit, len(refs), func(_ context.Context, i int) (assemble.Page, error) {
		return assemble.RenderPage(renderers[refs[i].d], refs[i].p)
	})
	if err != nil {
		return nil, err
	}

	entries := make([][]pendingEntry, len(docs))
	failed := make([][]ItemError, len(docs))
	for i, ref := range refs {
		doc := docs[ref.d]
		if perr := pageErrs[i]; perr != nil {
			s.metrics.Page(string(ModeSplit), metrics.StatusFailed)
			failed[ref.d] = append(failed[ref.d], ItemError{Doc: doc.Name(), Page: ref.p, Stage: StageRender, Err: perr})
			continue
		}
		s.metrics.Page(string(ModeSplit), metrics.StatusOK)
		entries[ref.d] = append(entries[ref.d], pendingEntry{
			name: pages[i].Name,
			data: pages[i].Data,
			item: archive.ManifestItem{Source: doc.Name(), Page: pages[i].Page, Status: archive.StatusOK},
		})
	}

	res = &SplitResult{Errors: errs}
	for d, doc := range docs {
		if openErrs[d] != nil {
			res.Errors = append(res.Errors, ItemError{Doc: doc.Name(), Stage: StageRender, Err: openErrs[d]})
		}
		res.Errors = append(res.Errors, failed[d]...)
	}

	used := make(map[string]bool, len(docs))
	for d, doc := range docs {
		if len(entries[d]) == 0 {
			continue
		}
		name := distinctName(SplitArchiveName(doc.Name()), used)
		info, err := s.writeArchive(ctx, sink, name, ModeSplit, entries[d], failedItems(failed[d]))
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			res.Errors = append(res.Errors, ItemError{Doc: doc.Name(), Stage: StageArchive, Err: err})
			return res, err
		}
		info.Source = doc.Name()
		res.Archives = append(res.Archives, info)
		res.Pages += len(entries[d])
		log.Debug().Str("doc", doc.Name()).Str("archive", info.Name).Int("pages", len(entries[d])).Msg("split archive written")
	}
	return res, nil
}

// distinctName returns name, or name with a -2, -3, ... suffix before the
// extension when an earlier call already returned it.
func distinctName(name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	used[candidate] = true
	return candidate
}
