package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dshills/sizewatch/internal/actions"
	"github.com/dshills/sizewatch/internal/baseline"
	"github.com/dshills/sizewatch/internal/comment"
	"github.com/dshills/sizewatch/internal/compare"
	"github.com/dshills/sizewatch/internal/output"
	"github.com/dshills/sizewatch/internal/sizelimit"
	"github.com/dshills/sizewatch/internal/toolrun"
)

// Log messages shown to workflow users.
const (
	MsgMalformed = "Error parsing size-limit output. The output should be a json."
	MsgComment   = "Error updating comment. This can happen for PR's originating from a fork without write permissions."
	MsgBreached  = "Size limit has been exceeded."
	MsgNoPR      = "No PR found. Only pull_request workflows are supported."
)

// Mode is one of the two run modes.
type Mode string

const (
	ModeRecord  Mode = "record"
	ModeCompare Mode = "compare"
)

// SelectMode returns ModeRecord when ref is the main branch.
func SelectMode(ref, mainBranch string) Mode {
	if actions.IsBranch(ref, mainBranch) {
		return ModeRecord
	}
	return ModeCompare
}

// ConfigurationError is a problem with the run's inputs detected before any
// external call is made.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// Measurer builds the project and runs size-limit.
type Measurer interface {
	Prepare(ctx context.Context) error
	Measure(ctx context.Context) (toolrun.Measurement, error)
}

// Store persists baselines.
type Store interface {
	Save(ctx context.Context, report sizelimit.Report, key baseline.Key) error
	Load(ctx context.Context, key baseline.Key) (sizelimit.Report, bool)
}

// Publisher posts the report comment.
type Publisher interface {
	Publish(ctx context.Context, body string, pr comment.PullRequestRef) error
}

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	Measurer  Measurer
	Store     Store
	Publisher Publisher
	Log       *logrus.Logger
	// DryRun writes the comment body to DryRunOut instead of publishing.
	DryRun    bool
	DryRunOut io.Writer
}

// Job describes one run.
type Job struct {
	Ref         string
	MainBranch  string
	Key         baseline.Key
	PullRequest *comment.PullRequestRef
	Threshold   compare.Threshold
}

// Outcome is the result of a run.
type Outcome struct {
	Mode        Mode
	Report      sizelimit.Report
	Comparison  compare.Result
	Breached    bool
	Significant bool
	Commented   bool
	// Body is the rendered comment body; empty when nothing was rendered.
	Body string
}

// OutputReport converts the outcome for the output writers.
func (o *Outcome) OutputReport(branch string, pr int) *output.Report {
	return &output.Report{
		Mode:        string(o.Mode),
		Branch:      branch,
		PullRequest: pr,
		Breached:    o.Breached,
		Result:      o.Comparison,
	}
}

// Run selects the mode for job and runs it.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Outcome, error) {
	if SelectMode(job.Ref, job.MainBranch) == ModeRecord {
		return p.RecordBaseline(ctx, job)
	}
	return p.CompareAgainstBaseline(ctx, job)
}

// RecordBaseline measures the project and saves the result as the baseline.
func (p *Pipeline) RecordBaseline(ctx context.Context, job Job) (*Outcome, error) {
	report, m, err := p.measure(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Mode:       ModeRecord,
		Report:     report,
		Comparison: compare.Compare(nil, report, job.Threshold),
		Breached:   m.Breached(),
	}
	if err := p.Store.Save(ctx, report, job.Key); err != nil {
		return out, err
	}
	p.logger().Infof("recorded baseline for %s (%d bundles)", job.Key, report.Len())
	p.reportBreach(out)
	return out, nil
}

// CompareAgainstBaseline measures the project, compares it against the
// stored baseline and publishes the report comment when the change is
// significant. A failure to publish is logged and does not fail the run.
func (p *Pipeline) CompareAgainstBaseline(ctx context.Context, job Job) (*Outcome, error) {
	if job.PullRequest == nil || job.PullRequest.Number <= 0 {
		return nil, &ConfigurationError{Reason: MsgNoPR}
	}
	log := p.logger()

	var base *sizelimit.Report
	if r, ok := p.Store.Load(ctx, job.Key); ok {
		base = &r
	} else {
		log.Infof("no baseline for %s, every bundle is reported as new", job.Key)
	}

	report, m, err := p.measure(ctx)
	if err != nil {
		return nil, err
	}
	result := compare.Compare(base, report, job.Threshold)
	out := &Outcome{
		Mode:        ModeCompare,
		Report:      report,
		Comparison:  result,
		Breached:    m.Breached(),
		Significant: result.Significant,
	}

	if result.Significant {
		out.Body = comment.WithMarker(output.Markdown(output.Render(result.Comparisons)))
		if err := p.publish(ctx, out.Body, *job.PullRequest); err != nil {
			log.WithError(err).Warn(MsgComment)
		} else {
			out.Commented = !p.DryRun
		}
	} else {
		log.Infof("change below threshold %s, not commenting", job.Threshold)
	}

	p.reportBreach(out)
	return out, nil
}

func (p *Pipeline) publish(ctx context.Context, body string, pr comment.PullRequestRef) error {
	if p.DryRun {
		w := p.DryRunOut
		if w == nil {
			w = io.Discard
		}
		_, err := fmt.Fprintln(w, body)
		return err
	}
	if p.Publisher == nil {
		return errors.New("no comment publisher configured")
	}
	return p.Publisher.Publish(ctx, body, pr)
}

func (p *Pipeline) measure(ctx context.Context) (sizelimit.Report, toolrun.Measurement, error) {
	if err := p.Measurer.Prepare(ctx); err != nil {
		return sizelimit.Report{}, toolrun.Measurement{}, err
	}
	m, err := p.Measurer.Measure(ctx)
	if err != nil {
		return sizelimit.Report{}, toolrun.Measurement{}, err
	}
	report, err := sizelimit.Parse(m.Output)
	if err != nil {
		p.logger().WithError(err).Error(MsgMalformed)
		return sizelimit.Report{}, m, err
	}
	return report, m, nil
}

func (p *Pipeline) reportBreach(out *Outcome) {
	if out.Breached {
		p.logger().Error(MsgBreached)
	}
}

func (p *Pipeline) logger() *logrus.Logger {
	if p.Log == nil {
		p.Log = logrus.New()
		p.Log.SetOutput(io.Discard)
	}
	return p.Log
}
