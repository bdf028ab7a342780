package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
)

func TestKeywordRow(t *testing.T) {
	row := KeywordRow("pole", "inspection.pdf", 3, 2, 5, "The pole leans.")

	assert.Equal(t, Row{
		Keyword:     "pole",
		File:        "inspection",
		Page:        "3",
		Occurrence:  "2 / 5",
		MatchedText: "The pole leans.",
	}, row)
	assert.Len(t, row.Values(), len(Columns))
}

func TestCitationRow(t *testing.T) {
	defs := lookup.Definitions{"31.1": "Design and construction"}
	c := pattern.Citation{Family: pattern.GO95, RuleNumber: "31.1", Sentence: "See GO 95 Rule 31.1."}

	row := CitationRow(c, defs, "inspection.pdf", 4, 1, 2)
	assert.Equal(t, Row{
		Keyword:     "GO 95",
		File:        "inspection.pdf",
		Page:        "Page 4",
		Occurrence:  "1 / 2",
		GoFamily:    "95",
		RuleNumber:  "31.1",
		Definition:  "Design and construction",
		MatchedText: "See GO 95 Rule 31.1.",
	}, row)

	missing := CitationRow(pattern.Citation{Family: pattern.GO128, RuleNumber: "9.9"}, defs, "x.pdf", 1, 1, 1)
	assert.Equal(t, "", missing.Definition)
	assert.Equal(t, "128", missing.GoFamily)
}

func TestSort(t *testing.T) {
	rows := []Row{
		{Keyword: "pole", File: "a"},
		{Keyword: "GO 95", File: "b"},
		{Keyword: "crossarm", File: "c"},
		{Keyword: "pole", File: "d"},
		{Keyword: "Guy", File: "e"},
	}
	Sort(rows)

	var keywords, files []string
	for _, r := range rows {
		keywords = append(keywords, r.Keyword)
		files = append(files, r.File)
	}
	assert.Equal(t, []string{"GO 95", "Guy", "crossarm", "pole", "pole"}, keywords)
	// equal keywords keep their input order
	assert.Equal(t, []string{"b", "e", "c", "a", "d"}, files)

	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].Keyword, rows[i].Keyword)
	}
}

func TestWriteXLSX(t *testing.T) {
	rows := []Row{
		KeywordRow("pole", "a.pdf", 1, 1, 1, "The pole leans."),
		CitationRow(pattern.Citation{Family: pattern.GO95, RuleNumber: "31.1", Sentence: "GO 95 Rule 31.1 applies."},
			lookup.Definitions{"31.1": "Design"}, "a.pdf", 1, 1, 1),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Columns, got[0])
	assert.Equal(t, []string{"pole", "a", "1", "1 / 1"}, got[1][:4])
	assert.Equal(t, rows[1].Values(), got[2])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Columns, got[0])
}

func TestWriteResolutionTable(t *testing.T) {
	results := []lookup.Resolution{
		{Doc: "a.pdf", Page: 1, FacilityID: "0133900802217000", Sequence: lookup.NotFound},
		{Doc: "b.pdf", Page: 1, FacilityID: "0133900802217001", Sequence: "1010"},
		{Doc: "b.pdf", Page: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResolutionTable(&buf, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ResolutionColumns, strings.Fields(lines[0]))
	assert.Equal(t, []string{"b.pdf", "page", "1", "1010", "0133900802217001"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"b.pdf", "page", "2", "not", "found", "not", "found"}, strings.Fields(lines[3]))
}
