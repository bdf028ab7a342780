package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// keep pdfcpu from creating a user config directory on first use
	api.DisableConfigDir()
}

// Size is a page dimension in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCountOf returns the number of pages in a PDF buffer.
func PageCountOf(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// PageSizes returns the dimensions of every page in a PDF buffer.
func PageSizes(data []byte) ([]Size, error) {
	dims, err := api.PageDims(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	sizes := make([]Size, len(dims))
	for i, d := range dims {
		sizes[i] = Size{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// ExtractPage copies one page of doc into a new single-page PDF.
func ExtractPage(doc *Document, page int) ([]byte, error) {
	if err := doc.checkPage("extract_page", page); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := api.Trim(doc.Reader(), &out, []string{strconv.Itoa(page)}, relaxedConfig()); err != nil {
		return nil, &Error{Doc: doc.name, Op: "extract_page", Page: page, Err: err}
	}
	return out.Bytes(), nil
}

// Merge concatenates PDFs in the given order into one document.
func Merge(parts [][]byte) ([]byte, error) {
	switch len(parts) {
	case 0:
		return nil, errors.New("nothing to merge")
	case 1:
		return parts[0], nil
	}

	rsc := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		rsc[i] = bytes.NewReader(p)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(rsc, &out, false, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(parts), err)
	}
	return out.Bytes(), nil
}

// EmbedImage builds a single-page PDF whose page is exactly the image's pixel
// dimensions (one pixel per point) and is covered by the image.
func EmbedImage(img image.Image) ([]byte, error) {
	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return nil, fmt.Errorf("failed to encode raster: %w", err)
	}

	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid import description: %w", err)
	}

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, []io.Reader{&raster}, imp, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to embed raster: %w", err)
	}
	return out.Bytes(), nil
}
