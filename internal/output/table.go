package output

import (
	"strings"

	"github.com/dshills/sizewatch/internal/compare"
	"github.com/dshills/sizewatch/internal/sizelimit"
)

// Placeholder is rendered wherever a value does not exist.
const Placeholder = "—"

const (
	changeNew     = "new"
	changeRemoved = "removed"
)

var (
	sizeHeader   = []string{"Path", "Size", "Size change"}
	timingHeader = []string{"Loading time (3g)", "Running time (snapdragon)", "Total time"}
)

// Table is a rendered comparison: a header row and one row per bundle.
type Table struct {
	Header []string   `json:"header" yaml:"header"`
	Rows   [][]string `json:"rows" yaml:"rows"`
}

// Render builds the report table in comparison order. Timing columns are
// included when every bundle in the current report carries timing data.
func Render(comparisons []compare.Comparison) Table {
	withTiming := hasTiming(comparisons)

	header := append([]string{}, sizeHeader...)
	if withTiming {
		header = append(header, timingHeader...)
	}

	rows := make([][]string, 0, len(comparisons))
	for _, c := range comparisons {
		row := []string{c.Name, sizeCell(c), changeCell(c)}
		if withTiming {
			row = append(row, timingCells(c)...)
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// Markdown renders the table as a GitHub-flavored markdown table.
func Markdown(t Table) string {
	var sb strings.Builder
	writeMarkdownRow(&sb, t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	writeMarkdownRow(&sb, sep)
	for _, row := range t.Rows {
		writeMarkdownRow(&sb, row)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(strings.ReplaceAll(c, "|", `\|`))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

func hasTiming(comparisons []compare.Comparison) bool {
	seen := false
	for _, c := range comparisons {
		if c.CurrentSize == nil {
			continue
		}
		if c.CurrentTiming == nil {
			return false
		}
		seen = true
	}
	return seen
}

func sizeCell(c compare.Comparison) string {
	if c.CurrentSize == nil {
		return Placeholder
	}
	return FormatBytes(*c.CurrentSize)
}

func changeCell(c compare.Comparison) string {
	switch c.Status {
	case compare.StatusAdded:
		return changeNew
	case compare.StatusRemoved:
		return changeRemoved
	}
	if c.PercentDelta != nil {
		return FormatChange(*c.PercentDelta)
	}
	if c.AbsoluteDelta != nil {
		return FormatBytesDelta(*c.AbsoluteDelta)
	}
	return Placeholder
}

func timingCells(c compare.Comparison) []string {
	cur := c.CurrentTiming
	if cur == nil {
		return []string{Placeholder, Placeholder, Placeholder}
	}
	loading := FormatTime(cur.Loading)
	if change, ok := timingChange(c.BaseTiming, cur); ok {
		loading += " (" + change + ")"
	}
	return []string{loading, FormatTime(cur.Running), FormatTime(cur.Total)}
}

func timingChange(base, cur *sizelimit.Timing) (string, bool) {
	if base == nil || base.Loading == 0 {
		return "", false
	}
	return FormatChange((cur.Loading - base.Loading) / base.Loading * 100), true
}
