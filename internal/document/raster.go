package document

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// RasterScale is the default render scale relative to the 72 dpi page space.
const RasterScale = 2

const pointsPerInch = 72

// Rasterizer opens page renderers over loaded documents.
type Rasterizer interface {
	Open(doc *Document) (PageRenderer, error)
}

// PageRenderer draws pages of one document to bitmaps. Pages are 1-based.
type PageRenderer interface {
	Render(page int) (image.Image, error)
	Close() error
}

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct {
	Scale float64
}

// NewFitzRasterizer returns a MuPDF rasterizer at the given scale. A
// non-positive scale falls back to RasterScale.
func NewFitzRasterizer(scale float64) *FitzRasterizer {
	if scale <= 0 {
		scale = RasterScale
	}
	return &FitzRasterizer{Scale: scale}
}

func (r *FitzRasterizer) Open(doc *Document) (PageRenderer, error) {
	fd, err := fitz.NewFromMemory(doc.data)
	if err != nil {
		return nil, &Error{Doc: doc.name, Op: "render", Err: fmt.Errorf("%w: %w", ErrRender, err)}
	}
	return &fitzRenderer{doc: doc, fd: fd, dpi: r.Scale * pointsPerInch}, nil
}

type fitzRenderer struct {
	doc *Document
	dpi float64

	mu sync.Mutex
	fd *fitz.Document
}

func (f *fitzRenderer) Render(page int) (img image.Image, err error) {
	if err := f.doc.checkPage("render", page); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = &Error{Doc: f.doc.name, Op: "render", Page: page, Err: recovered(r, ErrRender)}
		}
	}()

	rgba, err := f.fd.ImageDPI(page-1, f.dpi)
	if err != nil {
		return nil, &Error{Doc: f.doc.name, Op: "render", Page: page, Err: fmt.Errorf("%w: %w", ErrRender, err)}
	}
	return rgba, nil
}

func (f *fitzRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fd.Close()
}
