package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	// Actions selects workflow-command output.
	Actions bool
	// Debug enables debug level.
	Debug bool
}

// OptionsFromEnv detects an Actions runner and runner debug mode.
func OptionsFromEnv() Options {
	return Options{
		Actions: os.Getenv("GITHUB_ACTIONS") == "true",
		Debug:   os.Getenv("RUNNER_DEBUG") == "1",
	}
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if opts.Actions {
		l.SetFormatter(&ActionsFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	l.SetLevel(logrus.InfoLevel)
	if opts.Debug || opts.Actions {
		// The runner hides ::debug:: lines unless step debugging is on.
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// ActionsFormatter renders entries as GitHub Actions workflow commands.
type ActionsFormatter struct{}

// Format implements logrus.Formatter.
func (f *ActionsFormatter) Format(e *logrus.Entry) ([]byte, error) {
	msg := e.Message
	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString(msg)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, e.Data[k])
		}
		msg = sb.String()
	}

	var b bytes.Buffer
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		b.WriteString("::error::" + escapeData(msg))
	case logrus.WarnLevel:
		b.WriteString("::warning::" + escapeData(msg))
	case logrus.DebugLevel, logrus.TraceLevel:
		b.WriteString("::debug::" + escapeData(msg))
	default:
		b.WriteString(msg)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// escapeData applies the runner's escaping for workflow command messages.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

// Group runs fn inside a collapsible log group when l writes workflow
// commands. Otherwise it just runs fn.
func Group(l *logrus.Logger, title string, fn func() error) error {
	if _, ok := l.Formatter.(*ActionsFormatter); !ok {
		l.Debugf("== %s", title)
		return fn()
	}
	fmt.Fprintf(l.Out, "::group::%s\n", title)
	defer fmt.Fprintln(l.Out, "::endgroup::")
	return fn()
}
