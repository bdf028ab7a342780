package document

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Text placement inside the stamp box, in points from its lower-left corner.
// The last line sits at TextInset, earlier lines LineStep above each other.
const (
	TextInset = 5
	LineStep  = 15
)

// StampSpec describes a fixed-size text box stamped onto every page.
type StampSpec struct {
	Lines    []string
	Width    float64
	Height   float64
	Margin   float64 // distance from the bottom and right page edges
	FontSize int
	Color    string // hex, e.g. #FF0000
	Border   int
}

// description places the box page unscaled in the bottom-right corner.
func (s StampSpec) description() string {
	return strings.Join([]string{
		"scalefactor:1 abs",
		"position:br",
		fmt.Sprintf("offset:%s %s", fmtNum(-s.Margin), fmtNum(s.Margin)),
		"rotation:0",
		"opacity:1",
	}, ", ")
}

// Box renders the stamp as a one-page PDF of exactly Width x Height: a
// white rectangle with a Border-wide outline and the lines drawn at fixed
// offsets. Text running past the right edge is clipped by the page box.
func (s StampSpec) Box() ([]byte, error) {
	r, g, b, err := parseHexColor(s.Color)
	if err != nil {
		return nil, err
	}
	rgb := fmt.Sprintf("%s %s %s", fmtNum(r), fmtNum(g), fmtNum(b))
	inset := float64(s.Border) / 2

	var content strings.Builder
	fmt.Fprintf(&content, "q\n1 1 1 rg\n%s RG\n%d w\n", rgb, s.Border)
	fmt.Fprintf(&content, "%s %s %s %s re\n", fmtNum(inset), fmtNum(inset), fmtNum(s.Width-2*inset), fmtNum(s.Height-2*inset))
	if s.Border > 0 {
		content.WriteString("B\nQ\n")
	} else {
		content.WriteString("f\nQ\n")
	}
	fmt.Fprintf(&content, "BT\n/F1 %d Tf\n%s rg\n", s.FontSize, rgb)
	for i, line := range s.Lines {
		y := TextInset + LineStep*(len(s.Lines)-1-i)
		fmt.Fprintf(&content, "1 0 0 1 %d %d Tm\n(%s) Tj\n", TextInset, y, escapeText(line))
	}
	content.WriteString("ET")

	return singlePagePDF(s.Width, s.Height, content.String()), nil
}

// Stamp draws spec onto every page of a PDF buffer.
func Stamp(data []byte, spec StampSpec) ([]byte, error) {
	if len(spec.Lines) == 0 {
		return nil, errors.New("stamp has no text")
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid stamp size %gx%g", spec.Width, spec.Height)
	}
	box, err := spec.Box()
	if err != nil {
		return nil, err
	}

	wm, err := api.PDFWatermarkForReadSeeker(bytes.NewReader(box), 1, spec.description(), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid stamp: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &out, nil, wm, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to stamp document: %w", err)
	}
	return out.Bytes(), nil
}

// Stamped reports whether any page of data carries a stamp.
func Stamped(data []byte) (bool, error) {
	ok, err := api.HasWatermarks(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return false, fmt.Errorf("failed to inspect stamps: %w", err)
	}
	return ok, nil
}

// singlePagePDF writes a minimal PDF with one page of the given size, a
// Helvetica font resource named F1 and content as its content stream.
func singlePagePDF(width, height float64, content string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj("<< /Type /Pages /Kids [4 0 R] /Count 1 >>")
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents 5 0 R >>",
		fmtNum(width), fmtNum(height)))
	obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// parseHexColor converts #RRGGBB into components in [0, 1].
func parseHexColor(hex string) (r, g, b float64, err error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return float64(v>>16&0xff) / 255, float64(v>>8&0xff) / 255, float64(v&0xff) / 255, nil
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// escapeText makes s safe inside a PDF literal string. Characters outside
// Latin-1 are replaced by '?'.
func escapeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r > 0xff || r < 0x20 {
			return '?'
		}
		return r
	}, s)
	return textEscaper.Replace(s)
}
