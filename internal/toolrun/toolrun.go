package toolrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/sizewatch/internal/logging"
)

// Skip values for Options.SkipStep.
const (
	SkipInstall = "install"
	SkipBuild   = "build"
)

// Command is one process invocation.
type Command struct {
	Name     string
	Args     []string
	Dir      string
	Stdout   io.Writer
	Stderr   io.Writer
	Verbatim bool
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Executor runs a command and returns its exit status. A non-zero status is
// not an error; failing to start the process is.
type Executor interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// Run implements Executor.
func (ExecExecutor) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	setVerbatim(cmd, c.Verbatim)
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// StepError reports a failed install or build step, or a measurement that
// could not be started.
type StepError struct {
	Step     string
	Command  string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s step (%s): %v", e.Step, e.Command, e.Err)
	}
	return fmt.Sprintf("%s step (%s) exited with status %d", e.Step, e.Command, e.ExitCode)
}

func (e *StepError) Unwrap() error { return e.Err }

// Options configures a Runner.
type Options struct {
	Directory                string
	BuildScript              string
	SkipStep                 string
	WindowsVerbatimArguments bool
	// Stdout and Stderr receive the child output. Nil discards it.
	Stdout   io.Writer
	Stderr   io.Writer
	Executor Executor
}

// Measurement is the result of running size-limit.
type Measurement struct {
	Output string
	Status int
}

// Breached reports whether size-limit signalled a limit violation.
func (m Measurement) Breached() bool {
	return m.Status > 0
}

// Runner runs the project steps.
type Runner struct {
	opts Options
	exec Executor
	log  *logrus.Logger
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(opts Options, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if opts.BuildScript == "" {
		opts.BuildScript = "build"
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	ex := opts.Executor
	if ex == nil {
		ex = ExecExecutor{}
	}
	return &Runner{opts: opts, exec: ex, log: log}
}

// PackageManager returns "yarn" when the directory has a yarn.lock and
// "npm" otherwise.
func (r *Runner) PackageManager() string {
	if _, err := os.Stat(filepath.Join(r.opts.Directory, "yarn.lock")); err == nil {
		return "yarn"
	}
	return "npm"
}

// Prepare installs dependencies and runs the build script. Skipping build
// also skips install.
func (r *Runner) Prepare(ctx context.Context) error {
	if r.opts.SkipStep == SkipBuild {
		r.log.Debug("skipping install and build")
		return nil
	}
	pm := r.PackageManager()
	if r.opts.SkipStep != SkipInstall {
		if err := r.step(ctx, "install", Command{Name: pm, Args: []string{"install"}}); err != nil {
			return err
		}
	}
	return r.step(ctx, "build", Command{Name: pm, Args: []string{"run", r.opts.BuildScript}})
}

func (r *Runner) step(ctx context.Context, name string, c Command) error {
	return logging.Group(r.log, c.String(), func() error {
		c.Dir = r.opts.Directory
		c.Stdout = r.opts.Stdout
		c.Stderr = r.opts.Stderr
		c.Verbatim = r.opts.WindowsVerbatimArguments
		status, err := r.exec.Run(ctx, c)
		if err != nil {
			return &StepError{Step: name, Command: c.String(), ExitCode: status, Err: err}
		}
		if status != 0 {
			return &StepError{Step: name, Command: c.String(), ExitCode: status}
		}
		return nil
	})
}

// Measure runs size-limit with JSON output and returns its stdout and exit
// status.
func (r *Runner) Measure(ctx context.Context) (Measurement, error) {
	var out bytes.Buffer
	c := Command{
		Name:     "npx",
		Args:     []string{"size-limit", "--json"},
		Dir:      r.opts.Directory,
		Stdout:   io.MultiWriter(&out, r.opts.Stdout),
		Stderr:   r.opts.Stderr,
		Verbatim: r.opts.WindowsVerbatimArguments,
	}
	status, err := r.exec.Run(ctx, c)
	if err != nil {
		return Measurement{}, &StepError{Step: "measure", Command: c.String(), ExitCode: status, Err: err}
	}
	r.log.WithField("status", status).Debug("size-limit finished")
	return Measurement{Output: out.String(), Status: status}, nil
}
