package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// TableSummary is the per-table part of a run summary.
type TableSummary struct {
	Table  *Table
	Errors []ColumnError
}

// Summary renders a markdown report of the tables produced by a suite.
func Summary(suite string, tables []TableSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", suite)
	if len(tables) == 0 {
		b.WriteString("No tables were produced.\n")
		return b.String()
	}

	b.WriteString("| Table | Slice | Rows | Unavailable |\n")
	b.WriteString("|---|---|---:|---:|\n")
	for _, ts := range tables {
		fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", ts.Table.Filename, ts.Table.Slice, ts.Table.Rows(), ts.Table.Unavailable())
	}

	for _, ts := range tables {
		if len(ts.Errors) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", ts.Table.Filename)
		b.WriteString("| Column | Reference | Matched | Max abs | Mean abs | RMS |\n")
		b.WriteString("|---|---|---:|---:|---:|---:|\n")
		for _, ce := range ts.Errors {
			fmt.Fprintf(&b, "| %s | %s | %d | %.3e | %.3e | %.3e |\n",
				ce.Header, ce.Reference, ce.Matched, ce.MaxAbs, ce.MeanAbs, ce.RMS)
		}
	}
	return b.String()
}

// RenderMarkdown renders markdown for a terminal.
func RenderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}
