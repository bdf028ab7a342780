package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-sequencer/internal/document"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document/pdftest"
	"github.com/a3tai/mcp-pdf-sequencer/internal/document/rastertest"
	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
)

func TestGroup(t *testing.T) {
	results := []lookup.Resolution{
		{Doc: "a.pdf", Page: 1, Sequence: "1020"},
		{Doc: "a.pdf", Page: 2, Sequence: lookup.NotFound},
		{Doc: "a.pdf", Page: 3, Sequence: "1010"},
		{Doc: "b.pdf", Page: 1, Sequence: "1020"},
		{Doc: "b.pdf", Page: 2, Sequence: "1010"},
	}

	want := []SequenceGroup{
		{Sequence: "1020", Pages: []PageRef{{Doc: "a.pdf", Page: 1}, {Doc: "b.pdf", Page: 1}}},
		{Sequence: "1010", Pages: []PageRef{{Doc: "a.pdf", Page: 3}, {Doc: "b.pdf", Page: 2}}},
	}

	assert.Equal(t, want, Group(results))
	// same input, same groups
	assert.Equal(t, Group(results), Group(results))

	unresolved := Unresolved(results)
	require.Len(t, unresolved, 1)
	assert.Equal(t, 2, unresolved[0].Page)
}

func TestGroup_NothingResolved(t *testing.T) {
	assert.Empty(t, Group([]lookup.Resolution{{Doc: "a.pdf", Page: 1, Sequence: lookup.NotFound}}))
	assert.Empty(t, Group(nil))
}

func TestNaming(t *testing.T) {
	pages := []PageRef{{Doc: "a.pdf", Page: 3}, {Doc: "b.pdf", Page: 1}}

	assert.Equal(t, "SEQ1010.pdf", NamingSequence.FileName("1010", pages))
	assert.Equal(t, "1010sequenceMERGpage3_1.pdf", NamingMergedPages.FileName("1010", pages))

	tests := []struct {
		in      string
		want    Naming
		wantErr bool
	}{
		{in: "", want: NamingSequence},
		{in: "sequence", want: NamingSequence},
		{in: " Merged-Pages ", want: NamingMergedPages},
		{in: "random", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseNaming(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func loadDocs(t *testing.T) map[string]*document.Document {
	t.Helper()
	a, err := document.Load("a.pdf", pdftest.Build(
		pdftest.TextPage("a one"),
		pdftest.TextPage("a two"),
	), document.LoadOptions{})
	require.NoError(t, err)

	b, err := document.Load("b.pdf", pdftest.Build(pdftest.TextPage("b one")), document.LoadOptions{})
	require.NoError(t, err)

	return map[string]*document.Document{"a.pdf": a, "b.pdf": b}
}

func pageTexts(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := document.Load("out.pdf", data, document.LoadOptions{})
	require.NoError(t, err)

	var texts []string
	for p := 1; p <= doc.PageCount(); p++ {
		text, err := doc.Text(p)
		require.NoError(t, err)
		texts = append(texts, text)
	}
	return texts
}

func TestAssembler_Build(t *testing.T) {
	docs := loadDocs(t)
	group := SequenceGroup{
		Sequence: "1010",
		Pages:    []PageRef{{Doc: "b.pdf", Page: 1}, {Doc: "a.pdf", Page: 2}},
	}

	a := &Assembler{Naming: NamingMergedPages}
	out, err := a.Build(group, docs)
	require.NoError(t, err)

	assert.Equal(t, "1010sequenceMERGpage1_2.pdf", out.Name)
	assert.Equal(t, "1010", out.Sequence)
	assert.Equal(t, group.Pages, out.Pages)
	assert.Empty(t, out.Skipped)
	assert.Equal(t, []string{"b one", "a two"}, pageTexts(t, out.Data))
}

func TestAssembler_SkipsMissingDocuments(t *testing.T) {
	docs := loadDocs(t)
	group := SequenceGroup{
		Sequence: "1020",
		Pages:    []PageRef{{Doc: "gone.pdf", Page: 1}, {Doc: "a.pdf", Page: 1}},
	}

	out, err := (&Assembler{}).Build(group, docs)
	require.NoError(t, err)

	assert.Equal(t, "SEQ1020.pdf", out.Name)
	assert.Equal(t, []PageRef{{Doc: "a.pdf", Page: 1}}, out.Pages)
	assert.Equal(t, []PageRef{{Doc: "gone.pdf", Page: 1}}, out.Skipped)
	assert.Equal(t, []string{"a one"}, pageTexts(t, out.Data))
}

func TestAssembler_EmptyGroup(t *testing.T) {
	group := SequenceGroup{Sequence: "1030", Pages: []PageRef{{Doc: "gone.pdf", Page: 1}}}

	_, err := (&Assembler{}).Build(group, loadDocs(t))
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestAssembler_PageOutOfRange(t *testing.T) {
	group := SequenceGroup{Sequence: "1040", Pages: []PageRef{{Doc: "b.pdf", Page: 5}}}

	_, err := (&Assembler{}).Build(group, loadDocs(t))
	assert.ErrorIs(t, err, document.ErrPageOutOfRange)
}

func TestAssembler_Annotate(t *testing.T) {
	docs := loadDocs(t)
	group := SequenceGroup{
		Sequence: "1010",
		Pages:    []PageRef{{Doc: "a.pdf", Page: 1}, {Doc: "a.pdf", Page: 2}},
	}

	plain, err := (&Assembler{}).Build(group, docs)
	require.NoError(t, err)

	a := &Assembler{Annotate: &AnnotateOptions{WorkOrder: "WO-77"}}
	out, err := a.Build(group, docs)
	require.NoError(t, err)

	assert.Equal(t, "SEQ1010.pdf", out.Name)
	assert.NotEqual(t, plain.Data, out.Data)

	n, err := document.PageCountOf(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stamped, err := document.Stamped(out.Data)
	require.NoError(t, err)
	assert.True(t, stamped)

	stamped, err = document.Stamped(plain.Data)
	require.NoError(t, err)
	assert.False(t, stamped)
	assert.Equal(t, []string{"a one", "a two"}, pageTexts(t, out.Data))
}

func TestAnnotateOptions_LongWorkOrderKeepsBoxSize(t *testing.T) {
	spec := AnnotateOptions{WorkOrder: "WORK-ORDER-2026-000123-NORTH-DIST"}.StampSpec("1010")

	box, err := spec.Box()
	require.NoError(t, err)

	sizes, err := document.PageSizes(box)
	require.NoError(t, err)
	require.Len(t, sizes, 1)
	assert.InDelta(t, BoxWidth, sizes[0].Width, 0.01)
	assert.InDelta(t, BoxHeight, sizes[0].Height, 0.01)
	assert.Equal(t, []string{"WO: WORK-ORDER-2026-000123-NORTH-DIST Sequence #: 1010"}, pageTexts(t, box))
}

func TestAnnotateOptions_StampSpec(t *testing.T) {
	spec := AnnotateOptions{WorkOrder: "WO-77"}.StampSpec("1010")

	assert.Equal(t, []string{"WO: WO-77", "Sequence #: 1010"}, spec.Lines)
	assert.Equal(t, float64(BoxWidth), spec.Width)
	assert.Equal(t, float64(BoxHeight), spec.Height)
	assert.Equal(t, float64(BoxMargin), spec.Margin)
	assert.Equal(t, BoxFontSize, spec.FontSize)
	assert.Equal(t, BoxColor, spec.Color)
	assert.Equal(t, BoxBorderSize, spec.Border)
}

func TestRenderPage(t *testing.T) {
	data := pdftest.Build(
		pdftest.Page{Width: 100, Height: 50},
		pdftest.Page{Width: 80, Height: 120},
	)
	doc, err := document.Load("small.pdf", data, document.LoadOptions{})
	require.NoError(t, err)

	r := &rastertest.Blank{Scale: document.RasterScale}
	renderer, err := r.Open(doc)
	require.NoError(t, err)
	defer renderer.Close()

	first, err := RenderPage(renderer, 1)
	require.NoError(t, err)
	assert.Equal(t, "page1.pdf", first.Name)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 200.0, first.Width)
	assert.Equal(t, 100.0, first.Height)

	second, err := RenderPage(renderer, 2)
	require.NoError(t, err)
	assert.Equal(t, "page2.pdf", second.Name)
	assert.InDelta(t, 160, second.Width, 0.01)
	assert.InDelta(t, 240, second.Height, 0.01)

	for _, p := range []Page{first, second} {
		sizes, err := document.PageSizes(p.Data)
		require.NoError(t, err)
		require.Len(t, sizes, 1)
		assert.InDelta(t, p.Width, sizes[0].Width, 0.01)
		assert.InDelta(t, p.Height, sizes[0].Height, 0.01)
	}
}

func TestRenderPage_Failure(t *testing.T) {
	doc, err := document.Load("fail.pdf", pdftest.Build(pdftest.Page{Width: 10, Height: 10}), document.LoadOptions{})
	require.NoError(t, err)

	r := &rastertest.Blank{Fail: map[string][]int{"fail.pdf": {1}}}
	renderer, err := r.Open(doc)
	require.NoError(t, err)
	defer renderer.Close()

	_, err = RenderPage(renderer, 1)
	assert.ErrorIs(t, err, rastertest.ErrInjected)

	_, err = RenderPage(renderer, 2)
	assert.ErrorIs(t, err, document.ErrPageOutOfRange)
}
