package assemble

import (
	"fmt"
	"strconv"
	"strings"
)

// Naming selects how output documents are named.
type Naming string

const (
	// NamingSequence names outputs SEQ<sequence>.pdf.
	NamingSequence Naming = "sequence"
	// NamingMergedPages names outputs <sequence>sequenceMERGpage<p1_p2_...>.pdf.
	NamingMergedPages Naming = "merged-pages"
)

// ParseNaming accepts a naming mode name. An empty string selects
// NamingSequence.
func ParseNaming(s string) (Naming, error) {
	switch Naming(strings.ToLower(strings.TrimSpace(s))) {
	case "", NamingSequence:
		return NamingSequence, nil
	case NamingMergedPages:
		return NamingMergedPages, nil
	default:
		return "", fmt.Errorf("invalid naming %q (must be %q or %q)", s, NamingSequence, NamingMergedPages)
	}
}

// FileName returns the output file name for a sequence built from pages.
func (n Naming) FileName(sequence string, pages []PageRef) string {
	if n != NamingMergedPages {
		return "SEQ" + sequence + ".pdf"
	}
	nums := make([]string, len(pages))
	for i, p := range pages {
		nums[i] = strconv.Itoa(p.Page)
	}
	return sequence + "sequenceMERGpage" + strings.Join(nums, "_") + ".pdf"
}
