// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Letter page size in points.
const (
	LetterWidth  = 612
	LetterHeight = 792
)

// Line is one text-show operation placed at (X, Y).
type Line struct {
	X, Y float64
	Text string
}

// Page is a page with zero or more text lines.
type Page struct {
	Width, Height float64
	Lines         []Line
}

// TextPage returns a letter-size page with each string on its own row,
// top to bottom.
func TextPage(lines ...string) Page {
	p := Page{Width: LetterWidth, Height: LetterHeight}
	for i, l := range lines {
		p.Lines = append(p.Lines, Line{X: 72, Y: float64(720 - i*20), Text: l})
	}
	return p
}

// Build serializes pages into a PDF with a Helvetica font resource.
// Object layout: 1 catalog, 2 page tree, 3 font, then a page object and
// its content stream for every page.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w <= 0 || h <= 0 {
			w, h = LetterWidth, LetterHeight
		}
		obj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			w, h, 5+2*i))

		content := contentStream(p.Lines)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func contentStream(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n")
	for _, l := range lines {
		fmt.Fprintf(&sb, "1 0 0 1 %g %g Tm\n(%s) Tj\n", l.X, l.Y, escape(l.Text))
	}
	sb.WriteString("ET")
	return sb.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string {
	return escaper.Replace(s)
}
