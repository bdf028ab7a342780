package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-sequencer/internal/assemble"
	"github.com/a3tai/mcp-pdf-sequencer/internal/config"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/logger"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
	"github.com/a3tai/mcp-pdf-sequencer/internal/report"
	"github.com/a3tai/mcp-pdf-sequencer/internal/workspace"
)

// rasterizer overrides the page renderer used by split when set.
var rasterizer document.Rasterizer

type command struct {
	summary string

	// per-command flags
	table     bool
	naming    bool
	workOrder bool
	keywords  bool

	run func(ctx context.Context, c *cli) error
}

var commands = map[string]command{
	"split": {
		summary: "Split documents into rasterized single-page PDFs, one zip per document",
		run:     runSplit,
	},
	"resolve": {
		summary: "Print the sequence of every page without writing files",
		table:   true,
		run:     runResolve,
	},
	"rename": {
		summary: "Regroup pages by sequence into output.zip",
		table:   true,
		naming:  true,
		run:     func(ctx context.Context, c *cli) error { return runAssemble(ctx, c, false) },
	},
	"annotate": {
		summary:   "Regroup pages by sequence and stamp the work order into edited_files.zip",
		table:     true,
		naming:    true,
		workOrder: true,
		run:       func(ctx context.Context, c *cli) error { return runAssemble(ctx, c, true) },
	},
	"search": {
		summary:  "Export sentences containing keywords to a spreadsheet",
		keywords: true,
		run:      func(ctx context.Context, c *cli) error { return runReport(ctx, c, false) },
	},
	"analyze": {
		summary:  "Export GO 95 and GO 128 rule citations near keywords to a spreadsheet",
		keywords: true,
		run:      func(ctx context.Context, c *cli) error { return runReport(ctx, c, true) },
	},
}

type options struct {
	table     string
	naming    string
	workOrder string
	keywords  string
	output    string
	json      bool
}

// cli is the state of one subcommand invocation.
type cli struct {
	cfg     *config.Config
	opts    options
	paths   []string
	log     zerolog.Logger
	service *pipeline.Service
	loader  *workspace.Loader
	stdout  io.Writer
	stderr  io.Writer
}

var errNoPaths = errors.New("at least one PDF file or directory is required")

// newCLI parses the flags of a subcommand and wires the pipeline.
func newCLI(name string, cmd command, args []string, stdout, stderr io.Writer) (*cli, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs, config.DefaultConfig())

	c := &cli{stdout: stdout, stderr: stderr}
	if cmd.table {
		fs.StringVar(&c.opts.table, "table", "", "Lookup table file, relative to --dir")
	}
	if cmd.naming {
		fs.StringVar(&c.opts.naming, "naming", string(assemble.NamingSequence), "Output naming: sequence or merged-pages")
	}
	if cmd.workOrder {
		fs.StringVar(&c.opts.workOrder, "work-order", "", "Work order printed on every page")
	}
	if cmd.keywords {
		fs.StringVar(&c.opts.keywords, "keywords", "", "Comma-separated keywords")
		fs.StringVar(&c.opts.output, "output", "", "Spreadsheet file name (default "+pipeline.ReportName+")")
	}
	fs.BoolVar(&c.opts.json, "json", false, "Print the result as JSON")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.paths = fs.Args()
	if len(c.paths) == 0 {
		return nil, errNoPaths
	}

	lc := cfg.LoggerConfig()
	lc.Output = stderr
	c.log = logger.New(lc).With().Str("command", name).Logger()

	sandbox, err := workspace.NewSandbox(cfg.PDFDirectory)
	if err != nil {
		return nil, err
	}
	c.loader = workspace.NewLoader(sandbox, cfg.MaxFileSize, c.log)
	c.service = pipeline.NewService(pipeline.Options{
		Concurrency: cfg.Concurrency,
		MaxFileSize: cfg.MaxFileSize,
		Rasterizer:  rasterizer,
		HTTPClient:  &http.Client{Timeout: cfg.FetchTimeout},
	}, c.log, nil)
	return c, nil
}

func (c *cli) sources(ctx context.Context) ([]pipeline.Source, error) {
	sources, rejected, err := c.loader.Load(ctx, c.paths)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		fmt.Fprintf(c.stderr, "skipped %s: %s\n", r.Path, r.Reason)
	}
	return sources, nil
}

func (c *cli) table() (*lookup.Table, error) {
	if c.opts.table == "" {
		return nil, errors.New("--table is required")
	}
	text, err := c.loader.ReadText(c.opts.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup table: %w", err)
	}
	return lookup.ParseTable(text), nil
}

func (c *cli) sink() (*workspace.DirSink, error) {
	return workspace.NewDirSink(c.cfg.OutputDirectory)
}

// print writes v as JSON with --json, otherwise calls text.
func (c *cli) print(v any, text func(w io.Writer)) error {
	if c.opts.json {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(c.stdout)
	return nil
}

func (c *cli) printErrors(errs []pipeline.ItemError) {
	for _, e := range errs {
		fmt.Fprintf(c.stderr, "error: %v\n", e)
	}
}

func runSplit(ctx context.Context, c *cli) error {
	sources, err := c.sources(ctx)
	if err != nil {
		return err
	}
	sink, err := c.sink()
	if err != nil {
		return err
	}

	res, err := c.service.Split(ctx, sources, pipeline.RunConfig{}, sink)
	if res == nil {
		return err
	}
	c.printErrors(res.Errors)
	if perr := c.print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Split %d page(s) into %d archive(s)\n", res.Pages, len(res.Archives))
		for _, a := range res.Archives {
			fmt.Fprintf(w, "%s\t%d page(s)\n", sink.Path(a.Name), len(a.Entries))
		}
	}); perr != nil {
		return perr
	}
	return err
}

func runResolve(ctx context.Context, c *cli) error {
	table, err := c.table()
	if err != nil {
		return err
	}
	sources, err := c.sources(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Resolve(ctx, sources, pipeline.RunConfig{Table: table})
	if err != nil {
		return err
	}
	c.printErrors(res.Errors)
	for _, d := range res.Duplicates {
		fmt.Fprintf(c.stderr, "duplicate facility id %s: %s\n", d.FacilityID, strings.Join(d.Sequences, ", "))
	}
	return c.print(res, func(w io.Writer) {
		_ = report.WriteResolutionTable(w, res.Results)
	})
}

func runAssemble(ctx context.Context, c *cli, annotate bool) error {
	naming, err := assemble.ParseNaming(c.opts.naming)
	if err != nil {
		return err
	}
	if annotate && strings.TrimSpace(c.opts.workOrder) == "" {
		return errors.New("--work-order is required")
	}
	table, err := c.table()
	if err != nil {
		return err
	}
	sources, err := c.sources(ctx)
	if err != nil {
		return err
	}
	sink, err := c.sink()
	if err != nil {
		return err
	}

	rc := pipeline.RunConfig{Table: table, Naming: naming, WorkOrder: c.opts.workOrder}
	run := c.service.Rename
	if annotate {
		run = c.service.Annotate
	}
	res, err := run(ctx, sources, rc, sink)
	if res == nil {
		return err
	}
	c.printErrors(res.Errors)
	for _, u := range res.Unresolved {
		fmt.Fprintf(c.stderr, "unresolved: %s page %d %s\n", u.Doc, u.Page, u.FacilityID)
	}
	if perr := c.print(res, func(w io.Writer) {
		if res.Archive.Name == "" {
			fmt.Fprintf(w, "Built %d document(s), no archive was written\n", len(res.Outputs))
		} else {
			fmt.Fprintf(w, "Wrote %d document(s) to %s\n", len(res.Outputs), sink.Path(res.Archive.Name))
		}
		for _, o := range res.Outputs {
			fmt.Fprintf(w, "%s\t%d page(s)\n", o.Name, len(o.Pages))
		}
	}); perr != nil {
		return perr
	}
	return err
}

func runReport(ctx context.Context, c *cli, analyze bool) error {
	keywords := pattern.ParseKeywords(c.opts.keywords)
	if len(keywords) == 0 {
		return pipeline.ErrNoKeywords
	}
	sources, err := c.sources(ctx)
	if err != nil {
		return err
	}
	sink, err := c.sink()
	if err != nil {
		return err
	}

	rc := pipeline.RunConfig{Keywords: keywords}
	var res *pipeline.ReportResult
	if analyze {
		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
		var warnings []string
		rc.Definitions, warnings = c.service.LoadDefinitions(fetchCtx, pipeline.DefinitionSources{
			pattern.GO95.Name:  c.cfg.GO95Source,
			pattern.GO128.Name: c.cfg.GO128Source,
		})
		cancel()
		for _, w := range warnings {
			fmt.Fprintf(c.stderr, "warning: %s\n", w)
		}
		res, err = c.service.Analyze(ctx, sources, rc)
	} else {
		res, err = c.service.Search(ctx, sources, rc)
	}
	if err != nil {
		return err
	}
	c.printErrors(res.Errors)

	name, err := c.service.ExportReport(res.Rows, sink, c.opts.output)
	if err != nil {
		return err
	}
	return c.print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Found %d row(s) across %d page(s)\n", len(res.Rows), res.Pages)
		fmt.Fprintf(w, "Spreadsheet: %s\n", sink.Path(name))
	})
}
