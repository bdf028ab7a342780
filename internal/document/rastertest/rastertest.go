// Package rastertest provides a document.Rasterizer that needs no native
// renderer. Pages render as blank bitmaps of the scaled page size.
package rastertest

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
)

// ErrInjected is the failure returned for pages listed in Blank.Fail.
var ErrInjected = errors.New("injected render failure")

// Blank renders white bitmaps. Pages listed in Fail, keyed by document name,
// fail with ErrInjected.
type Blank struct {
	Scale float64
	Fail  map[string][]int

	mu     sync.Mutex
	opened int
	closed int
}

func (b *Blank) Open(doc *document.Document) (document.PageRenderer, error) {
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &renderer{b: b, doc: doc}, nil
}

// Balanced reports whether every opened renderer was closed.
func (b *Blank) Balanced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened == b.closed
}

type renderer struct {
	b   *Blank
	doc *document.Document
}

func (r *renderer) Render(page int) (image.Image, error) {
	for _, p := range r.b.Fail[r.doc.Name()] {
		if p == page {
			return nil, &document.Error{Doc: r.doc.Name(), Op: "render", Page: page, Err: ErrInjected}
		}
	}

	size, err := r.doc.PageSize(page)
	if err != nil {
		return nil, err
	}
	scale := r.b.Scale
	if scale <= 0 {
		scale = document.RasterScale
	}
	w := int(math.Round(size.Width * scale))
	h := int(math.Round(size.Height * scale))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img, nil
}

func (r *renderer) Close() error {
	r.b.mu.Lock()
	r.b.closed++
	r.b.mu.Unlock()
	return nil
}
