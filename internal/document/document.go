// Package document loads PDF byte buffers into page-addressable handles and
// provides the page-level operations the pipeline is built from: text
// extraction, rasterization, page copy, merge, stamping and image embedding.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// headerWindow is how far into the buffer the %PDF- marker may appear.
const headerWindow = 1024

// LoadOptions constrains what Load accepts.
type LoadOptions struct {
	// MaxSize rejects buffers larger than this many bytes. Zero disables the check.
	MaxSize int64
}

// Document is a read-only, page-addressable view over one PDF buffer.
// Pages are 1-based and contiguous.
type Document struct {
	name  string
	data  []byte
	pages int

	// ledongthuc readers are not safe for concurrent use
	mu   sync.Mutex
	text *pdf.Reader
}

// Load parses data as a PDF. Failures are reported as *Error and never panic.
func Load(name string, data []byte, opts LoadOptions) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, &Error{Doc: name, Op: "load", Err: ErrEmpty}
	}
	if opts.MaxSize > 0 && int64(len(data)) > opts.MaxSize {
		return nil, &Error{
			Doc: name,
			Op:  "load",
			Err: fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, len(data), opts.MaxSize),
		}
	}
	head := data[:min(len(data), headerWindow)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, &Error{Doc: name, Op: "load", Err: fmt.Errorf("%w: missing %%PDF- header", ErrInvalidDocument)}
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &Error{Doc: name, Op: "load", Err: recovered(r, ErrInvalidDocument)}
		}
	}()

	pages, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return nil, &Error{Doc: name, Op: "load", Err: fmt.Errorf("%w: %w", ErrInvalidDocument, err)}
	}
	if pages < 1 {
		return nil, &Error{Doc: name, Op: "load", Err: fmt.Errorf("%w: document has no pages", ErrInvalidDocument)}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Doc: name, Op: "load", Err: fmt.Errorf("%w: %w", ErrInvalidDocument, err)}
	}

	return &Document{
		name:  name,
		data:  data,
		pages: pages,
		text:  reader,
	}, nil
}

// Name returns the name the document was loaded under.
func (d *Document) Name() string {
	return d.name
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.pages
}

// Size returns the raw buffer length in bytes.
func (d *Document) Size() int {
	return len(d.data)
}

// Reader returns a fresh reader over the raw bytes.
func (d *Document) Reader() io.ReadSeeker {
	return bytes.NewReader(d.data)
}

func (d *Document) checkPage(op string, page int) error {
	if page < 1 || page > d.pages {
		return &Error{
			Doc:  d.name,
			Op:   op,
			Page: page,
			Err:  fmt.Errorf("%w (document has %d pages)", ErrPageOutOfRange, d.pages),
		}
	}
	return nil
}

// Fragments returns the text fragments of a page in content-stream order.
// Each fragment is the decoded output of one text-showing operation; a TJ
// array yields a single fragment. Empty fragments are dropped.
func (d *Document) Fragments(page int) (frags []string, err error) {
	if err := d.checkPage("extract_text", page); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = &Error{Doc: d.name, Op: "extract_text", Page: page, Err: recovered(r, ErrExtract)}
		}
	}()

	p := d.text.Page(page)
	if p.V.IsNull() || p.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}

	fonts := make(map[string]pdf.TextEncoding)
	for _, name := range p.Fonts() {
		fonts[name] = p.Font(name).Encoder()
	}

	var enc pdf.TextEncoding
	show := func(raw string) {
		s := raw
		if enc != nil {
			s = enc.Decode(raw)
		}
		if s != "" {
			frags = append(frags, s)
		}
	}

	pdf.Interpret(p.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if len(args) == 2 {
				enc = fonts[args[0].Name()]
			}
		case "Tj", "'":
			if len(args) == 1 {
				show(args[0].RawString())
			}
		case "\"":
			if len(args) == 3 {
				show(args[2].RawString())
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			var b strings.Builder
			for i := 0; i < args[0].Len(); i++ {
				if v := args[0].Index(i); v.Kind() == pdf.String {
					b.WriteString(v.RawString())
				}
			}
			show(b.String())
		}
	})
	return frags, nil
}

// Text returns the page's fragments joined by a single space.
func (d *Document) Text(page int) (string, error) {
	frags, err := d.Fragments(page)
	if err != nil {
		return "", err
	}
	return strings.Join(frags, " "), nil
}

// CompactText strips all whitespace inside each fragment before joining the
// fragments with a single space. Identifier scans run over this form so that
// glyph spacing inside a printed number does not break it apart.
func (d *Document) CompactText(page int) (string, error) {
	frags, err := d.Fragments(page)
	if err != nil {
		return "", err
	}
	for i, f := range frags {
		frags[i] = strings.Join(strings.Fields(f), "")
	}
	return strings.Join(frags, " "), nil
}

// PageSize returns the media box dimensions of a page in points.
func (d *Document) PageSize(page int) (Size, error) {
	if err := d.checkPage("page_size", page); err != nil {
		return Size{}, err
	}
	sizes, err := PageSizes(d.data)
	if err != nil {
		return Size{}, &Error{Doc: d.name, Op: "page_size", Page: page, Err: err}
	}
	if page > len(sizes) {
		return Size{}, &Error{Doc: d.name, Op: "page_size", Page: page, Err: ErrPageOutOfRange}
	}
	return sizes[page-1], nil
}
