// Package report flattens keyword and rule-citation matches into spreadsheet
// rows.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pattern"
)

// Columns is the header row of every report.
var Columns = []string{"keyword", "file", "page", "occurrence", "go ?", "rule number", "definition", "title"}

// Row is one report line.
type Row struct {
	Keyword     string `json:"keyword"`
	File        string `json:"file"`
	Page        string `json:"page"`
	Occurrence  string `json:"occurrence"`
	GoFamily    string `json:"go_family,omitempty"`
	RuleNumber  string `json:"rule_number,omitempty"`
	Definition  string `json:"definition,omitempty"`
	MatchedText string `json:"title"`
}

// Values returns the row in Columns order.
func (r Row) Values() []string {
	return []string{r.Keyword, r.File, r.Page, r.Occurrence, r.GoFamily, r.RuleNumber, r.Definition, r.MatchedText}
}

// Occurrence formats a 1-based position within n matches.
func Occurrence(i, n int) string {
	return fmt.Sprintf("%d / %d", i, n)
}

// KeywordRow builds the row for the i-th of n sentences on a page that
// contain keyword. The file name is reported without its .pdf extension.
func KeywordRow(keyword, file string, page, i, n int, sentence string) Row {
	return Row{
		Keyword:     keyword,
		File:        strings.Replace(file, ".pdf", "", 1),
		Page:        strconv.Itoa(page),
		Occurrence:  Occurrence(i, n),
		MatchedText: sentence,
	}
}

// CitationRow builds the row for a citation found in the i-th of n matching
// sentences on a page. The keyword column carries the rule family.
func CitationRow(c pattern.Citation, defs lookup.Definitions, file string, page, i, n int) Row {
	return Row{
		Keyword:     c.Family.Name,
		File:        file,
		Page:        fmt.Sprintf("Page %d", page),
		Occurrence:  Occurrence(i, n),
		GoFamily:    c.Family.Number,
		RuleNumber:  c.RuleNumber,
		Definition:  defs.Lookup(c.RuleNumber),
		MatchedText: c.Sentence,
	}
}

// Sort orders rows by keyword, byte-wise and stable.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Keyword < rows[j].Keyword
	})
}
