// Package lookup resolves extracted facility identifiers to sequence numbers
// and indexes rule-definition tables by rule number.
package lookup

import (
	"sort"
	"strings"
)

// NotFound is the sequence reported for identifiers the table cannot resolve.
const NotFound = "not found"

// Entry is one row of the lookup table.
type Entry struct {
	Sequence   string `json:"sequence"`
	FacilityID string `json:"facility_id"`
	Line       int    `json:"line"`
}

// Table maps canonical facility identifiers to sequence numbers. It is
// read-only after ParseTable and safe for concurrent use.
type Table struct {
	entries    []Entry
	index      map[string]int
	duplicates map[string][]string
	malformed  int
}

// CanonicalID removes period separators and whitespace from a facility
// identifier so that table ids compare equal to extracted ids.
func CanonicalID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, id)
}

// ParseTable parses tab-separated "<sequence>\t<facilityId>" lines. Blank
// lines are ignored. Lines without a tab, or with an empty field, never match
// and are counted as malformed. When a facility id appears more than once the
// first entry wins.
func ParseTable(text string) *Table {
	t := &Table{
		index:      make(map[string]int),
		duplicates: make(map[string][]string),
	}

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		seq, id, ok := strings.Cut(line, "\t")
		seq = strings.TrimSpace(seq)
		id = CanonicalID(strings.TrimSpace(id))
		if !ok || seq == "" || id == "" {
			t.malformed++
			continue
		}

		t.entries = append(t.entries, Entry{Sequence: seq, FacilityID: id, Line: n + 1})
		if first, exists := t.index[id]; exists {
			if len(t.duplicates[id]) == 0 {
				t.duplicates[id] = []string{t.entries[first].Sequence}
			}
			t.duplicates[id] = append(t.duplicates[id], seq)
			continue
		}
		t.index[id] = len(t.entries) - 1
	}

	return t
}

// Resolve returns the sequence bound to facilityID, or NotFound.
func (t *Table) Resolve(facilityID string) string {
	if facilityID == "" {
		return NotFound
	}
	i, ok := t.index[CanonicalID(facilityID)]
	if !ok {
		return NotFound
	}
	return t.entries[i].Sequence
}

// Len returns the number of well-formed entries, duplicates included.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the well-formed entries in input order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Malformed returns the number of non-blank lines that produced no entry.
func (t *Table) Malformed() int {
	return t.malformed
}

// Duplicate describes a facility id bound to more than one sequence.
type Duplicate struct {
	FacilityID string   `json:"facility_id"`
	Sequences  []string `json:"sequences"`
}

// Duplicates lists facility ids that appear more than once, sorted by id.
// The first sequence of each is the one Resolve returns.
func (t *Table) Duplicates() []Duplicate {
	out := make([]Duplicate, 0, len(t.duplicates))
	for id, seqs := range t.duplicates {
		out = append(out, Duplicate{FacilityID: id, Sequences: append([]string(nil), seqs...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacilityID < out[j].FacilityID })
	return out
}

// Resolution is the outcome of scanning and resolving one page.
type Resolution struct {
	Doc        string `json:"file_name"`
	Page       int    `json:"page"`
	FacilityID string `json:"facility_id"`
	Sequence   string `json:"sequence"`
}

// Resolved reports whether the page has a sequence.
func (r Resolution) Resolved() bool {
	return r.Sequence != "" && r.Sequence != NotFound
}
