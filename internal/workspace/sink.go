package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
)

// DirSink delivers outputs as files in a directory. Each output is written
// to a temporary file and renamed into place on Commit, so a discarded or
// interrupted output never appears under its final name.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSink{dir: abs}, nil
}

// Dir returns the absolute output directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// Path returns where an output named name is delivered.
func (s *DirSink) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *DirSink) Create(name string) (pipeline.Artifact, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == ".." {
		return nil, fmt.Errorf("invalid output name %q", name)
	}
	tmp, err := os.CreateTemp(s.dir, "."+base+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &fileArtifact{File: tmp, final: filepath.Join(s.dir, base)}, nil
}

type fileArtifact struct {
	*os.File
	final string
	done  bool
}

func (a *fileArtifact) Commit() error {
	if a.done {
		return fmt.Errorf("artifact %s already finished", a.final)
	}
	a.done = true
	if err := a.File.Close(); err != nil {
		_ = os.Remove(a.File.Name())
		return err
	}
	if err := os.Rename(a.File.Name(), a.final); err != nil {
		_ = os.Remove(a.File.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func (a *fileArtifact) Discard() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.File.Close()
	return os.Remove(a.File.Name())
}
