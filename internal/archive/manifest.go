package archive

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ManifestName is the archive entry the manifest is written to.
const ManifestName = "manifest.yaml"

// Status is the outcome recorded for one manifest item.
type Status string

const (
	StatusOK         Status = "ok"
	StatusUnresolved Status = "unresolved"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Manifest describes what an archive contains and what was left out.
type Manifest struct {
	JobID   string         `yaml:"job_id" json:"job_id"`
	Archive string         `yaml:"archive" json:"archive"`
	Mode    string         `yaml:"mode" json:"mode"`
	Created time.Time      `yaml:"created" json:"created"`
	Items   []ManifestItem `yaml:"items" json:"items"`
}

// ManifestItem is one entry, source page or group in a manifest.
type ManifestItem struct {
	Entry    string `yaml:"entry,omitempty" json:"entry,omitempty"`
	Source   string `yaml:"source,omitempty" json:"source,omitempty"`
	Page     int    `yaml:"page,omitempty" json:"page,omitempty"`
	Sequence string `yaml:"sequence,omitempty" json:"sequence,omitempty"`
	Pages    []int  `yaml:"pages,omitempty,flow" json:"pages,omitempty"`
	Status   Status `yaml:"status" json:"status"`
	Error    string `yaml:"error,omitempty" json:"error,omitempty"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewJobID returns a lexically sortable unique job id.
func NewJobID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
