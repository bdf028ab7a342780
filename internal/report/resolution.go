package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/a3tai/mcp-pdf-sequencer/internal/lookup"
)

// ResolutionColumns is the header of the facility resolution table.
var ResolutionColumns = []string{"fileName", "page", "sequence", "facilityId"}

// ResolutionValues returns a resolution in ResolutionColumns order. Missing
// values read as "not found".
func ResolutionValues(r lookup.Resolution) []string {
	seq := r.Sequence
	if seq == "" {
		seq = lookup.NotFound
	}
	id := r.FacilityID
	if id == "" {
		id = lookup.NotFound
	}
	return []string{r.Doc, fmt.Sprintf("page %d", r.Page), seq, id}
}

// WriteResolutionTable renders resolutions as an aligned text table.
func WriteResolutionTable(w io.Writer, results []lookup.Resolution) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(ResolutionColumns, "\t"))
	for _, r := range results {
		fmt.Fprintln(tw, strings.Join(ResolutionValues(r), "\t"))
	}
	return tw.Flush()
}
