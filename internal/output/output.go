package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/sizewatch/internal/compare"
)

// Report is a comparison together with the run it came from.
type Report struct {
	Mode        string         `json:"mode" yaml:"mode"`
	Branch      string         `json:"branch,omitempty" yaml:"branch,omitempty"`
	PullRequest int            `json:"pullRequest,omitempty" yaml:"pullRequest,omitempty"`
	Breached    bool           `json:"breached" yaml:"breached"`
	Result      compare.Result `json:"result" yaml:"result"`
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// Formats lists the supported report formats.
var Formats = []string{"text", "json", "yaml", "markdown"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "yaml", "yml":
		return &YAMLWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(report *Report, format, outPath string, stdout io.Writer) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = stdout
	}

	return writer.Write(w, report)
}
