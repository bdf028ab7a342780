// Package archive packages generated documents into a single zip archive
// with a YAML manifest.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrClosed is returned when adding to a closed Writer.
var ErrClosed = errors.New("archive writer is closed")

// Writer streams entries into a zip archive as they are added; entries are
// not held in memory after Add returns.
type Writer struct {
	name    string
	zw      *zip.Writer
	names   map[string]int
	entries []string
	closed  bool
	now     func() time.Time
}

// NewWriter starts an archive called name on w.
func NewWriter(w io.Writer, name string) *Writer {
	return &Writer{
		name:  name,
		zw:    zip.NewWriter(w),
		names: map[string]int{ManifestName: 1},
		now:   time.Now,
	}
}

// Name returns the archive name.
func (w *Writer) Name() string {
	return w.name
}

// Entries returns the entry names written so far, in order.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Add writes data as a new entry and returns the name it was stored under.
// Directory components are dropped. A name already in the archive gets a
// numeric suffix: x.pdf, x-2.pdf, ...
func (w *Writer) Add(name string, data []byte) (string, error) {
	if w.closed {
		return "", ErrClosed
	}

	stored := w.unique(name)
	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     stored,
		Method:   zip.Deflate,
		Modified: w.now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create archive entry %s: %w", stored, err)
	}
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write archive entry %s: %w", stored, err)
	}

	w.entries = append(w.entries, stored)
	return stored, nil
}

func (w *Writer) unique(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "unnamed"
	}

	key := strings.ToLower(name)
	n := w.names[key]
	w.names[key] = n + 1
	if n == 0 {
		return name
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := n + 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		ckey := strings.ToLower(candidate)
		if w.names[ckey] == 0 {
			w.names[ckey] = 1
			return candidate
		}
	}
}

// Close appends the manifest, when given, and finishes the archive. The
// manifest's archive name and job id are filled in if empty.
func (w *Writer) Close(m *Manifest) error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if m != nil {
		if m.Archive == "" {
			m.Archive = w.name
		}
		if m.JobID == "" {
			m.JobID = NewJobID()
		}
		if m.Created.IsZero() {
			m.Created = w.now().UTC()
		}

		data, err := yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		f, err := w.zw.Create(ManifestName)
		if err != nil {
			return fmt.Errorf("failed to create manifest entry: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive %s: %w", w.name, err)
	}
	return nil
}
