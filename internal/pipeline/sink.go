package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Artifact is an output being written. Nothing is delivered until Commit;
// Discard drops whatever was written.
type Artifact interface {
	io.Writer
	Commit() error
	Discard() error
}

// Sink receives named outputs: archives and spreadsheets.
type Sink interface {
	Create(name string) (Artifact, error)
}

// MemorySink keeps committed outputs in memory.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Create(name string) (Artifact, error) {
	return &memoryArtifact{sink: s, name: name}, nil
}

// Names returns the committed output names, sorted.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a committed output.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

type memoryArtifact struct {
	sink *MemorySink
	name string
	buf  bytes.Buffer
	done bool
}

func (a *memoryArtifact) Write(p []byte) (int, error) {
	if a.done {
		return 0, fmt.Errorf("artifact %s already finished", a.name)
	}
	return a.buf.Write(p)
}

func (a *memoryArtifact) Commit() error {
	if a.done {
		return fmt.Errorf("artifact %s already finished", a.name)
	}
	a.done = true
	a.sink.mu.Lock()
	a.sink.files[a.name] = a.buf.Bytes()
	a.sink.mu.Unlock()
	return nil
}

func (a *memoryArtifact) Discard() error {
	a.done = true
	a.buf.Reset()
	return nil
}
