// Package assemble turns per-page resolutions into sequence groups and
// builds the output documents for them. It also holds the split pathway,
// which rebuilds each page as a standalone rasterized document.
package assemble

import "github.com/a3tai/mcp-pdf-sequencer/internal/lookup"

// PageRef points at one page of a named source document.
type PageRef struct {
	Doc  string `json:"file_name" yaml:"file_name"`
	Page int    `json:"page" yaml:"page"`
}

// SequenceGroup is the ordered set of pages that resolved to one sequence.
type SequenceGroup struct {
	Sequence string    `json:"sequence"`
	Pages    []PageRef `json:"pages"`
}

// Group collects resolved pages by sequence. Groups appear in the order their
// sequence was first seen and pages keep scan order within a group.
// Unresolved pages are left out.
func Group(results []lookup.Resolution) []SequenceGroup {
	var groups []SequenceGroup
	index := make(map[string]int)

	for _, r := range results {
		if !r.Resolved() {
			continue
		}
		i, ok := index[r.Sequence]
		if !ok {
			i = len(groups)
			index[r.Sequence] = i
			groups = append(groups, SequenceGroup{Sequence: r.Sequence})
		}
		groups[i].Pages = append(groups[i].Pages, PageRef{Doc: r.Doc, Page: r.Page})
	}
	return groups
}

// Unresolved returns the results that did not resolve, in scan order.
func Unresolved(results []lookup.Resolution) []lookup.Resolution {
	var out []lookup.Resolution
	for _, r := range results {
		if !r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}
