package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// TextWriter outputs a bordered terminal table followed by a short summary.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}

	ew.printf("sizewatch %s", report.Mode)
	if report.Branch != "" {
		ew.printf(" (branch: %s)", report.Branch)
	}
	if report.PullRequest > 0 {
		ew.printf(" PR #%d", report.PullRequest)
	}
	ew.println("")

	tbl := Render(report.Result.Comparisons)
	if len(tbl.Rows) == 0 {
		ew.println("No bundles measured.")
	} else {
		ew.println(renderBox(tbl))
	}

	if !report.Result.BaseAvailable {
		ew.println("Baseline: not available")
	}
	verdict := "no"
	if report.Result.Significant {
		verdict = "yes"
	}
	ew.printf("Significant change: %s (threshold: %s)\n", verdict, report.Result.Threshold)
	if report.Breached {
		ew.println("Size limit has been exceeded.")
	}
	return ew.err
}

func renderBox(tbl Table) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(tbl.Header...).
		Rows(tbl.Rows...).
		String()
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
