package assemble

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
)

// Page is one rasterized single-page document produced by the split pathway.
type Page struct {
	Name   string  `json:"name"`
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Data   []byte  `json:"-"`
}

// PageFileName is the archive entry name of a split page.
func PageFileName(page int) string {
	return fmt.Sprintf("page%d.pdf", page)
}

// RenderPage rasterizes one page and embeds the raster in a new document
// whose page size is the raster size.
func RenderPage(r document.PageRenderer, page int) (Page, error) {
	img, err := r.Render(page)
	if err != nil {
		return Page{}, err
	}
	data, err := document.EmbedImage(img)
	if err != nil {
		return Page{}, fmt.Errorf("page %d: %w", page, err)
	}
	b := img.Bounds()
	return Page{
		Name:   PageFileName(page),
		Page:   page,
		Width:  float64(b.Dx()),
		Height: float64(b.Dy()),
		Data:   data,
	}, nil
}
