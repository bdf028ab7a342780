package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-sequencer/internal/archive"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/logger"
	"github.com/a3tai/mcp-pdf-sequencer/internal/metrics"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
)

// ErrDuplicateSource is reported for a source whose name was already used in
// the batch.
var ErrDuplicateSource = errors.New("duplicate source name")

// Service runs pipeline modes. It is safe for concurrent use.
type Service struct {
	opts      Options
	log       zerolog.Logger
	metrics   *metrics.Metrics
	sentences *pattern.SentenceSplitter
	citations *pattern.CitationFinder
}

// NewService creates a Service. A nil metrics value disables instrumentation.
func NewService(opts Options, log zerolog.Logger, m *metrics.Metrics) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Rasterizer == nil {
		opts.Rasterizer = document.NewFitzRasterizer(document.RasterScale)
	}

	citations, err := pattern.NewCitationFinder(pattern.Families...)
	if err != nil {
		// the built-in families are constant
		panic(err)
	}

	return &Service{
		opts:      opts,
		log:       logger.Component(log, "pipeline"),
		metrics:   m,
		sentences: pattern.NewSentenceSplitter(),
		citations: citations,
	}
}

func (s *Service) limit(cfg RunConfig) int {
	if cfg.Concurrency > 0 {
		return cfg.Concurrency
	}
	return s.opts.Concurrency
}

// begin logs and instruments the start of a run and returns its finisher.
func (s *Service) begin(mode Mode, sources int) (zerolog.Logger, func(error)) {
	log := s.log.With().Str("mode", string(mode)).Logger()
	log.Info().Int("sources", sources).Msg("run started")

	start := time.Now()
	done := s.metrics.StartRun(string(mode))
	return log, func(err error) {
		done(err)
		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Dur("duration", time.Since(start)).Msg("run finished")
	}
}

// load parses sources concurrently. Documents come back in source order;
// sources that fail to load become item errors.
func (s *Service) load(ctx context.Context, mode Mode, limit int, sources []Source) ([]*document.Document, []ItemError, error) {
	var errs []ItemError
	seen := make(map[string]bool, len(sources))
	accepted := make([]Source, 0, len(sources))
	for _, src := range sources {
		if seen[src.Name] {
			errs = append(errs, ItemError{Doc: src.Name, Stage: StageLoad, Err: ErrDuplicateSource})
			s.metrics.Document(string(mode), metrics.StatusFailed)
			continue
		}
		seen[src.Name] = true
		accepted = append(accepted, src)
	}

	opts := document.LoadOptions{MaxSize: s.opts.MaxFileSize}
	docs, loadErrs, err := fanOut(ctx, limit, len(accepted), func(_ context.Context, i int) (*document.Document, error) {
		return document.Load(accepted[i].Name, accepted[i].Data, opts)
	})
	if err != nil {
		return nil, nil, err
	}

	var out []*document.Document
	for i, doc := range docs {
		if loadErrs[i] != nil {
			s.log.Warn().Str("doc", accepted[i].Name).Err(loadErrs[i]).Msg("document rejected")
			s.metrics.Document(string(mode), metrics.StatusFailed)
			errs = append(errs, ItemError{Doc: accepted[i].Name, Stage: StageLoad, Err: loadErrs[i]})
			continue
		}
		s.metrics.Document(string(mode), metrics.StatusOK)
		out = append(out, doc)
	}
	return out, errs, nil
}

// pageRef addresses page p (1-based) of docs[d].
type pageRef struct {
	d, p int
}

// allPages lists every page of docs in document and page order.
func allPages(docs []*document.Document) []pageRef {
	var refs []pageRef
	for d, doc := range docs {
		for p := 1; p <= doc.PageCount(); p++ {
			refs = append(refs, pageRef{d: d, p: p})
		}
	}
	return refs
}

// scanPages reads every page of every document with read. All pages of the
// batch share one pool, so at most limit reads run at once. texts[d][p-1]
// holds page p of docs[d]; failed pages hold "" and are reported as item
// errors in document and page order.
func (s *Service) scanPages(
	ctx context.Context,
	mode Mode,
	limit int,
	docs []*document.Document,
	read func(doc *document.Document, page int) (string, error),
) ([][]string, []ItemError, error) {
	refs := allPages(docs)
	results, errs, err := fanOut(ctx, limit, len(refs), func(_ context.Context, i int) (string, error) {
		return read(docs[refs[i].d], refs[i].p)
	})
	if err != nil {
		return nil, nil, err
	}

	texts := make([][]string, len(docs))
	for d, doc := range docs {
		texts[d] = make([]string, doc.PageCount())
	}
	var itemErrs []ItemError
	for i, ref := range refs {
		if errs[i] != nil {
			s.metrics.Page(string(mode), metrics.StatusFailed)
			itemErrs = append(itemErrs, ItemError{Doc: docs[ref.d].Name(), Page: ref.p, Stage: StageExtract, Err: errs[i]})
			continue
		}
		texts[ref.d][ref.p-1] = results[i]
	}
	return texts, itemErrs, nil
}

// pendingEntry is an archive entry and the manifest item describing it.
type pendingEntry struct {
	name string
	data []byte
	item archive.ManifestItem
}

// writeArchive streams entries into a new archive on sink, followed by the
// manifest. The archive is discarded if ctx ends or a write fails.
func (s *Service) writeArchive(
	ctx context.Context,
	sink Sink,
	name string,
	mode Mode,
	entries []pendingEntry,
	extra []archive.ManifestItem,
) (ArchiveInfo, error) {
	art, err := sink.Create(name)
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("failed to create %s: %w", name, err)
	}

	fail := func(err error) (ArchiveInfo, error) {
		_ = art.Discard()
		return ArchiveInfo{}, err
	}

	w := archive.NewWriter(art, name)
	manifest := &archive.Manifest{JobID: archive.NewJobID(), Archive: name, Mode: string(mode)}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		stored, err := w.Add(e.name, e.data)
		if err != nil {
			return fail(err)
		}
		item := e.item
		item.Entry = stored
		manifest.Items = append(manifest.Items, item)
	}
	manifest.Items = append(manifest.Items, extra...)

	if err := w.Close(manifest); err != nil {
		return fail(err)
	}
	if err := art.Commit(); err != nil {
		return ArchiveInfo{}, fmt.Errorf("failed to deliver %s: %w", name, err)
	}

	s.metrics.ArchiveEntries(string(mode), len(entries))
	return ArchiveInfo{Name: name, JobID: manifest.JobID, Entries: w.Entries()}, nil
}

func failedItems(errs []ItemError) []archive.ManifestItem {
	items := make([]archive.ManifestItem, 0, len(errs))
	for _, e := range errs {
		items = append(items, archive.ManifestItem{
			Source:   e.Doc,
			Page:     e.Page,
			Sequence: e.Sequence,
			Status:   archive.StatusFailed,
			Error:    fmt.Sprint(e.Err),
		})
	}
	return items
}
