package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = body
	}
	return out
}

func TestWriter_AddAndClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "output.zip")
	assert.Equal(t, "output.zip", w.Name())

	name, err := w.Add("SEQ1010.pdf", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "SEQ1010.pdf", name)

	name, err = w.Add("SEQ1020.pdf", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "SEQ1020.pdf", name)

	require.NoError(t, w.Close(nil))

	files := readZip(t, buf.Bytes())
	assert.Len(t, files, 2)
	assert.Equal(t, []byte("first"), files["SEQ1010.pdf"])
	assert.Equal(t, []byte("second"), files["SEQ1020.pdf"])
	assert.Equal(t, []string{"SEQ1010.pdf", "SEQ1020.pdf"}, w.Entries())
}

func TestWriter_DeduplicatesNames(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "dupes.zip")

	var names []string
	for _, n := range []string{"page1.pdf", "page1.pdf", "PAGE1.pdf", "manifest.yaml", "", "../escape.pdf"} {
		stored, err := w.Add(n, []byte(n))
		require.NoError(t, err)
		names = append(names, stored)
	}
	require.NoError(t, w.Close(nil))

	assert.Equal(t, []string{
		"page1.pdf",
		"page1-2.pdf",
		"PAGE1-3.pdf",
		"manifest-2.yaml",
		"unnamed",
		"escape.pdf",
	}, names)
	assert.Len(t, readZip(t, buf.Bytes()), 6)
}

func TestWriter_Manifest(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "edited_files.zip")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	_, err := w.Add("SEQ1010.pdf", []byte("pdf"))
	require.NoError(t, err)

	m := &Manifest{
		Mode: "annotate",
		Items: []ManifestItem{
			{Entry: "SEQ1010.pdf", Sequence: "1010", Pages: []int{1, 2}, Status: StatusOK},
			{Source: "a.pdf", Page: 3, Status: StatusUnresolved},
			{Source: "gone.pdf", Page: 1, Sequence: "1010", Status: StatusSkipped},
			{Source: "broken.pdf", Status: StatusFailed, Error: "not a valid PDF document"},
		},
	}
	require.NoError(t, w.Close(m))

	files := readZip(t, buf.Bytes())
	require.Contains(t, files, ManifestName)

	var got Manifest
	require.NoError(t, yaml.Unmarshal(files[ManifestName], &got))
	assert.Equal(t, "edited_files.zip", got.Archive)
	assert.Equal(t, "annotate", got.Mode)
	assert.True(t, got.Created.Equal(fixed))
	assert.Equal(t, m.Items, got.Items)

	_, err = ulid.ParseStrict(got.JobID)
	assert.NoError(t, err)
}

func TestWriter_Closed(t *testing.T) {
	w := NewWriter(io.Discard, "x.zip")
	require.NoError(t, w.Close(nil))

	_, err := w.Add("late.pdf", nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Close(nil), ErrClosed)
}

func TestNewJobID(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		id := NewJobID()
		assert.Len(t, id, 26)
		assert.False(t, seen[id])
		assert.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
}
