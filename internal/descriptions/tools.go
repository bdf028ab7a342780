package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Page tools
	PDFSplitPagesDescription = `Split PDF documents into single-page PDFs, one zip archive per document.

**When to use:** Need every page of a scanned or generated batch as its own file, for review, routing or re-ordering.

**Why it's useful:** Each page is rendered at twice its size and rebuilt as an image-only PDF, so the output pages open in any viewer regardless of fonts or form fields in the source.

**Examples:**
• Break up a scan: "Split inspection-batch.pdf into pages" → inspection-batch_pages.zip with page1.pdf, page2.pdf, ...
• Whole folder: "Split every PDF in /scans/2024-06" → one <name>_pages.zip per document

**Output:** Archives are written to the output directory. Each contains manifest.yaml listing every page and any page that failed to render.

**Best practices:** Text is not selectable in the split pages. Use pdf_resolve_sequences on the original documents when identifiers must be read.`

	// Sequencing tools
	PDFResolveSequencesDescription = `Read the facility identifier printed on every page and look up its sequence number.

**When to use:** Before renaming or annotating, to check which pages resolve and which do not.

**Why it's useful:** Shows the whole page-to-sequence mapping without writing any files, so a bad lookup table or an unreadable page is caught early.

**Identifier format:** eight digits, a period, more digits, whitespace, then a trailing number (e.g. "01339008.0221700 1"). The three digit groups are joined into one id.

**Lookup table:** one line per facility, "<sequence><TAB><facility id>". Periods in the id are ignored when matching.

**Examples:**
• "Which sequences do the pages of poles.pdf map to, using table.txt?"
• "Find pages in /batch that have no sequence in lookup.tsv"

**Best practices:** Fix unresolved pages or duplicate table entries here, then run pdf_rename_by_sequence.`

	PDFRenameBySequenceDescription = `Regroup pages of one or more PDFs by sequence number and write one PDF per sequence into output.zip.

**When to use:** A batch of pages must be reassembled into per-sequence documents named after the sequence.

**Why it's useful:** Pages from different source files that share a sequence are merged in scan order, and the archive manifest lists every page that could not be resolved.

**Examples:**
• "Rename the pages of north.pdf and south.pdf by sequence using table.txt" → output.zip with SEQ1010.pdf, SEQ1020.pdf, ...
• naming "merged-pages" → 1010sequenceMERGpage3_7.pdf

**Best practices:** Run pdf_resolve_sequences first when the lookup table is new. Unresolved pages are left out of the archive and reported.`

	PDFAnnotateSequencesDescription = `Like pdf_rename_by_sequence, and also stamp every output page with a work-order box.

**When to use:** Field packages need the work order and sequence number printed on each page.

**Why it's useful:** The box is drawn in the bottom-right corner of every page with "WO: <work order>" and "Sequence #: <sequence>", so printed pages stay traceable.

**Examples:**
• "Annotate batch.pdf with work order WO-4471 using table.txt" → edited_files.zip with SEQ<sequence>.pdf files

**Best practices:** Keep the work order short; the box is 120 by 40 points.`

	// Analysis tools
	PDFKeywordSearchDescription = `Find sentences containing keywords and export them to a spreadsheet.

**When to use:** Need every mention of a term across a batch of reports, with file, page and position.

**Why it's useful:** Text is split into sentences, matched case-insensitively, and written one row per sentence to pdf_keyword_analyzer.xlsx, sorted by keyword.

**Examples:**
• "Find 'crossarm, pole top' in all inspection reports" → rows with keyword, file, page, "1 / 3" occurrence and the sentence

**Best practices:** Separate keywords with commas. Scanned pages without a text layer yield no rows.`

	PDFRuleAnalysisDescription = `Find GO 95 and GO 128 rule citations in keyword sentences and export them with rule definitions.

**When to use:** Inspection reports cite General Order rules and the cited rules must be collected and explained.

**Why it's useful:** Each sentence that contains a keyword is scanned for "GO 95, Rule 31.1" or "GO 128 Rule 17.2" style citations. Every citation becomes a row with the rule number and, when definition tables are configured, the rule title.

**Examples:**
• "Which GO rules are cited near 'clearance' in the June reports?" → pdf_keyword_analyzer.xlsx, keyword column GO 95 / GO 128

**Best practices:** Configure the go95 and go128 definition sources on the server to fill the definition column. Analysis still runs when a source cannot be fetched.`

	// Utility tools
	PDFServerInfoDescription = `Get server status, directories, available tools and supported rule families.

**When to use:** Starting work with the sequencer, or checking where inputs are read from and outputs are written to.

**Why it's useful:** Lists the PDFs available in the input directory and the limits that apply to a run.

**Best practices:** Call this first in a new session.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_split_pages":        PDFSplitPagesDescription,
	"pdf_resolve_sequences":  PDFResolveSequencesDescription,
	"pdf_rename_by_sequence": PDFRenameBySequenceDescription,
	"pdf_annotate_sequences": PDFAnnotateSequencesDescription,
	"pdf_keyword_search":     PDFKeywordSearchDescription,
	"pdf_rule_analysis":      PDFRuleAnalysisDescription,
	"pdf_server_info":        PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the names of all tools, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
