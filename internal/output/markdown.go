package output

import (
	"fmt"
	"io"
)

// MarkdownWriter outputs the comparison table as markdown, the same table
// that is posted in pull-request comments.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	_, err := fmt.Fprintln(w, Markdown(Render(report.Result.Comparisons)))
	return err
}
