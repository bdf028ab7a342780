package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-sequencer/internal/logger"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
)

// Source discovery errors.
var (
	ErrNotPDF   = errors.New("file is not a PDF")
	ErrTooLarge = errors.New("file too large")
	ErrNoInputs = errors.New("no PDF files found")
)

// Rejected is an input path that was not loaded.
type Rejected struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Loader reads PDF sources and auxiliary text files from a sandbox.
type Loader struct {
	sandbox     *Sandbox
	maxFileSize int64
	log         zerolog.Logger
}

// NewLoader creates a Loader. A maxFileSize of zero disables the size check.
func NewLoader(sandbox *Sandbox, maxFileSize int64, log zerolog.Logger) *Loader {
	return &Loader{
		sandbox:     sandbox,
		maxFileSize: maxFileSize,
		log:         logger.Component(log, "workspace"),
	}
}

// Discover expands paths into PDF files. Directories are walked recursively
// and contribute every *.pdf file below them, sorted; files are kept in the
// given order. Files named explicitly must carry a .pdf extension.
func (l *Loader) Discover(paths []string) ([]string, []Rejected, error) {
	var (
		files    []string
		rejected []Rejected
	)
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		abs, err := l.sandbox.Resolve(p)
		if err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("file does not exist: %s", p)
			}
			return nil, nil, fmt.Errorf("cannot access file: %w", err)
		}

		if !info.IsDir() {
			if !isPDF(abs) {
				return nil, nil, fmt.Errorf("%w: %s", ErrNotPDF, p)
			}
			add(abs)
			continue
		}

		var found []string
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				rejected = append(rejected, Rejected{Path: path, Reason: err.Error()})
				return nil
			}
			if d.IsDir() || !isPDF(d.Name()) {
				return nil
			}
			if ok, cerr := l.sandbox.Contains(path); cerr != nil || !ok {
				rejected = append(rejected, Rejected{Path: path, Reason: ErrOutsideSandbox.Error()})
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, rejected, ErrNoInputs
	}
	return files, rejected, nil
}

// Load discovers and reads PDF sources. Each source is named by its path
// relative to the sandbox root, with forward slashes, so equal file names in
// different directories stay distinct. Files that cannot be read or exceed the size limit are
// rejected and left out; the pipeline validates the rest.
func (l *Loader) Load(ctx context.Context, paths []string) ([]pipeline.Source, []Rejected, error) {
	files, rejected, err := l.Discover(paths)
	if err != nil {
		return nil, rejected, err
	}

	sources := make([]pipeline.Source, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, rejected, err
		}
		data, err := l.read(f)
		if err != nil {
			l.log.Warn().Str("path", f).Err(err).Msg("source rejected")
			rejected = append(rejected, Rejected{Path: f, Reason: err.Error()})
			continue
		}
		sources = append(sources, pipeline.Source{Name: l.sourceName(f), Data: data})
	}
	l.log.Debug().Int("sources", len(sources)).Int("rejected", len(rejected)).Msg("sources loaded")
	return sources, rejected, nil
}

func (l *Loader) sourceName(path string) string {
	rel, err := filepath.Rel(l.sandbox.Root(), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// ReadText reads a text input such as a lookup table from the sandbox.
func (l *Loader) ReadText(path string) (string, error) {
	abs, err := l.sandbox.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := l.read(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Loader) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, info.Size(), l.maxFileSize)
	}

	r := io.Reader(f)
	if l.maxFileSize > 0 {
		r = io.LimitReader(f, l.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if l.maxFileSize > 0 && int64(len(data)) > l.maxFileSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxFileSize)
	}
	return data, nil
}

func isPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
