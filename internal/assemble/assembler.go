package assemble

import (
	"errors"
	"fmt"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
)

// ErrEmptyGroup is returned when none of a group's pages could be copied.
var ErrEmptyGroup = errors.New("sequence group has no available pages")

// Annotation box geometry and style, in points.
const (
	BoxWidth      = 120
	BoxHeight     = 40
	BoxMargin     = 10
	BoxFontSize   = 10
	BoxColor      = "#FF0000"
	BoxBorderSize = 1
)

// AnnotateOptions enables the work-order box on every output page.
type AnnotateOptions struct {
	WorkOrder string
}

// StampSpec returns the box drawn on pages of the given sequence.
func (o AnnotateOptions) StampSpec(sequence string) document.StampSpec {
	return document.StampSpec{
		Lines:    []string{"WO: " + o.WorkOrder, "Sequence #: " + sequence},
		Width:    BoxWidth,
		Height:   BoxHeight,
		Margin:   BoxMargin,
		FontSize: BoxFontSize,
		Color:    BoxColor,
		Border:   BoxBorderSize,
	}
}

// Output is an assembled document for one sequence group.
type Output struct {
	Name     string    `json:"name"`
	Sequence string    `json:"sequence"`
	Pages    []PageRef `json:"pages"`
	Skipped  []PageRef `json:"skipped,omitempty"`
	Data     []byte    `json:"-"`
}

// Assembler copies grouped pages into new documents.
type Assembler struct {
	Naming   Naming
	Annotate *AnnotateOptions
}

// Build copies the group's pages, in group order, from docs into a new
// document. Pages whose source is not in docs are skipped and reported in
// Output.Skipped.
func (a *Assembler) Build(group SequenceGroup, docs map[string]*document.Document) (Output, error) {
	out := Output{Sequence: group.Sequence}

	var parts [][]byte
	for _, ref := range group.Pages {
		doc, ok := docs[ref.Doc]
		if !ok {
			out.Skipped = append(out.Skipped, ref)
			continue
		}
		part, err := document.ExtractPage(doc, ref.Page)
		if err != nil {
			return Output{}, fmt.Errorf("sequence %s: %w", group.Sequence, err)
		}
		parts = append(parts, part)
		out.Pages = append(out.Pages, ref)
	}
	if len(parts) == 0 {
		return Output{}, fmt.Errorf("sequence %s: %w", group.Sequence, ErrEmptyGroup)
	}

	data, err := document.Merge(parts)
	if err != nil {
		return Output{}, fmt.Errorf("sequence %s: %w", group.Sequence, err)
	}

	if a.Annotate != nil {
		data, err = document.Stamp(data, a.Annotate.StampSpec(group.Sequence))
		if err != nil {
			return Output{}, fmt.Errorf("sequence %s: %w", group.Sequence, err)
		}
	}

	out.Name = a.Naming.FileName(group.Sequence, out.Pages)
	out.Data = data
	return out, nil
}
