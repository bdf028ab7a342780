// Package workspace maps caller paths onto the local filesystem: it confines
// inputs to a sandbox directory, discovers PDF sources and delivers outputs
// into an output directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideSandbox is returned for paths that escape the sandbox directory.
var ErrOutsideSandbox = errors.New("path is outside the configured directory")

// Sandbox confines paths to one directory tree.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir. The directory does not need to
// exist yet.
func NewSandbox(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("sandbox directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox directory: %w", err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the sandbox root. Null bytes are stripped.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	ok, err := s.Contains(abs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutsideSandbox, path)
	}
	return abs, nil
}

// Contains reports whether path lies inside the sandbox, both lexically and
// after symlinks are evaluated.
func (s *Sandbox) Contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	root := s.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	target := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		target = resolved
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}

	lexical := within(abs, s.root) || within(abs, root)
	resolved := within(target, s.root) || within(target, root)
	return lexical && resolved, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
