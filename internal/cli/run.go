package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/sizewatch/internal/actions"
	"github.com/dshills/sizewatch/internal/baseline"
	"github.com/dshills/sizewatch/internal/comment"
	"github.com/dshills/sizewatch/internal/compare"
	"github.com/dshills/sizewatch/internal/config"
	"github.com/dshills/sizewatch/internal/gitctx"
	"github.com/dshills/sizewatch/internal/github"
	"github.com/dshills/sizewatch/internal/output"
	"github.com/dshills/sizewatch/internal/pipeline"
	"github.com/dshills/sizewatch/internal/redact"
	"github.com/dshills/sizewatch/internal/toolrun"
)

// Shared run flags
var (
	flagMainBranch  string
	flagWorkflow    string
	flagBuildScript string
	flagDirectory   string
	flagSkipStep    string
	flagVerbatim    bool
	flagThreshold   string
	flagFormat      string
	flagOut         string
	flagDryRun      bool
	flagStepSummary bool
	flagBackend     string
	flagBaselineDir string
	flagPR          int
)

// executor runs install, build and size-limit; nil uses os/exec.
var executor toolrun.Executor

// runFlags maps flag names to config keys.
var runFlags = map[string]string{
	"main-branch":                "main_branch",
	"workflow-name":              "workflow_name",
	"build-script":               "build_script",
	"directory":                  "directory",
	"skip-step":                  "skip_step",
	"windows-verbatim-arguments": "windows_verbatim_arguments",
	"threshold":                  "threshold",
	"format":                     "format",
	"out":                        "out",
	"dry-run":                    "dry_run",
	"step-summary":               "step_summary",
	"backend":                    "baseline.backend",
	"baseline-dir":               "baseline.dir",
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagMainBranch, "main-branch", "", "Branch whose runs record the baseline (default: master)")
	cmd.Flags().StringVar(&flagWorkflow, "workflow-name", "", "Workflow that records the baseline (default: $GITHUB_WORKFLOW)")
	cmd.Flags().StringVar(&flagBuildScript, "build-script", "", "Package script to run before measuring (default: build)")
	cmd.Flags().StringVar(&flagDirectory, "directory", "", "Project directory (default: current directory)")
	cmd.Flags().StringVar(&flagSkipStep, "skip-step", "", "Skip a step (install, build)")
	cmd.Flags().BoolVar(&flagVerbatim, "windows-verbatim-arguments", false, "Pass arguments verbatim on Windows")
	cmd.Flags().StringVar(&flagThreshold, "threshold", "", "Minimum percent change that triggers a comment")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, yaml, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print the comment instead of publishing it")
	cmd.Flags().BoolVar(&flagStepSummary, "step-summary", true, "Append the report to the job summary")
	cmd.Flags().StringVar(&flagBackend, "backend", "", "Baseline backend (artifact, file, s3)")
	cmd.Flags().StringVar(&flagBaselineDir, "baseline-dir", "", "Directory for the file backend")
}

// buildOverrides returns the config values of flags set on the command line.
func buildOverrides(cmd *cobra.Command) map[string]interface{} {
	values := map[string]interface{}{
		"main-branch":                flagMainBranch,
		"workflow-name":              flagWorkflow,
		"build-script":               flagBuildScript,
		"directory":                  flagDirectory,
		"skip-step":                  flagSkipStep,
		"windows-verbatim-arguments": flagVerbatim,
		"threshold":                  flagThreshold,
		"format":                     flagFormat,
		"out":                        flagOut,
		"dry-run":                    flagDryRun,
		"step-summary":               flagStepSummary,
		"backend":                    flagBackend,
		"baseline-dir":               flagBaselineDir,
	}
	m := make(map[string]interface{})
	for name, key := range runFlags {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			m[key] = values[name]
		}
	}
	return m
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record on the main branch, compare on pull requests",
	Long: "Run measures the project with size-limit. On the main branch the result is saved as the " +
		"baseline; on pull requests it is compared against the baseline and reported in a comment.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, "")
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Measure and save the baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, pipeline.ModeRecord)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Measure and compare against the baseline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, pipeline.ModeCompare)
	},
}

func init() {
	addRunFlags(runCmd)
	addRunFlags(recordCmd)
	addRunFlags(compareCmd)
	compareCmd.Flags().IntVar(&flagPR, "pr", 0, "Pull request number (default: from the event payload)")
}

// invocation is everything a run needs, resolved from config and the
// environment before any external call.
type invocation struct {
	cfg         config.Config
	actx        *actions.Context
	mode        pipeline.Mode
	ref         string
	owner, repo string
	job         pipeline.Job
}

// runPipeline runs the given mode; an empty mode is selected from the ref.
func runPipeline(cmd *cobra.Command, mode pipeline.Mode) error {
	log := newLogger(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	inv, err := resolve(cmd, log, mode)
	if err != nil {
		fail(log, ExitUsageError, err)
		return nil
	}

	p, code, err := buildPipeline(ctx, cmd, log, inv)
	if err != nil {
		fail(log, code, err)
		return nil
	}

	var out *pipeline.Outcome
	if inv.mode == pipeline.ModeRecord {
		out, err = p.RecordBaseline(ctx, inv.job)
	} else {
		out, err = p.CompareAgainstBaseline(ctx, inv.job)
	}
	if err != nil {
		var ce *pipeline.ConfigurationError
		if errors.As(err, &ce) {
			fail(log, ExitUsageError, err)
		} else {
			fail(log, ExitRuntimeError, err)
		}
		return nil
	}

	branch, pr := reportTarget(inv)
	if err := output.WriteReport(out.OutputReport(branch, pr), inv.cfg.Format, inv.cfg.Out, cmd.OutOrStdout()); err != nil {
		fail(log, ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		return nil
	}
	if inv.cfg.StepSummary {
		if err := inv.actx.AppendStepSummary(summary(out)); err != nil {
			log.WithError(err).Warn("unable to write step summary")
		}
	}

	if out.Breached {
		exitCode = ExitLimitExceeded
	}
	return nil
}

// resolve loads and validates config and works out the mode, repository and
// job. Every error it returns is a usage error.
func resolve(cmd *cobra.Command, log *logrus.Logger, mode pipeline.Mode) (*invocation, error) {
	cfg, err := config.Load(flagConfig, buildOverrides(cmd))
	if err != nil {
		return nil, err
	}
	redact.Mask(log, cfg.GitHubToken, cfg.Baseline.S3.AccessKeyID, cfg.Baseline.S3.SecretAccessKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	actx, err := actions.FromEnv()
	if err != nil {
		return nil, err
	}
	redact.Mask(log, actx.Runtime.Token)

	threshold, ok := compare.ParseThreshold(cfg.Threshold)
	if !ok {
		log.Warnf("invalid threshold %q, every change will be reported", cfg.Threshold)
	}

	inv := &invocation{cfg: cfg, actx: actx, ref: actx.Ref}
	if inv.ref == "" {
		if meta, err := gitctx.GetRepoMeta(cfg.Directory); err == nil {
			inv.ref = meta.Ref()
		}
	}
	inv.mode = mode
	if inv.mode == "" {
		inv.mode = pipeline.SelectMode(inv.ref, cfg.MainBranch)
	}
	log.Debugf("ref %q, mode %s", inv.ref, inv.mode)

	workflow := cfg.WorkflowName
	if workflow == "" {
		if cfg.Baseline.Backend == config.BackendArtifact {
			return nil, &pipeline.ConfigurationError{Reason: "workflow_name is not set and GITHUB_WORKFLOW is empty"}
		}
		workflow = "default"
	}
	inv.job = pipeline.Job{
		Ref:        inv.ref,
		MainBranch: cfg.MainBranch,
		Key:        baseline.Key{Branch: cfg.MainBranch, Workflow: workflow},
		Threshold:  threshold,
	}

	if inv.mode == pipeline.ModeCompare || cfg.Baseline.Backend == config.BackendArtifact {
		inv.owner, inv.repo, err = repository(cfg)
		if err != nil {
			return nil, &pipeline.ConfigurationError{Reason: err.Error()}
		}
	}
	if inv.mode == pipeline.ModeCompare {
		number := flagPR
		if number == 0 && actx.PullRequest != nil {
			number = actx.PullRequest.Number
		}
		if number <= 0 {
			return nil, &pipeline.ConfigurationError{Reason: pipeline.MsgNoPR}
		}
		inv.job.PullRequest = &comment.PullRequestRef{Owner: inv.owner, Repo: inv.repo, Number: number}
	}
	return inv, nil
}

// repository returns the configured repository, falling back to the origin
// remote of the checkout.
func repository(cfg config.Config) (owner, repo string, err error) {
	if cfg.Repository != "" {
		return github.SplitRepository(cfg.Repository)
	}
	owner, repo, err = github.DetectRepo(cfg.Directory)
	if err != nil {
		return "", "", fmt.Errorf("missing repository: set repository or GITHUB_REPOSITORY (%w)", err)
	}
	return owner, repo, nil
}

// buildPipeline constructs the collaborators for inv. The returned code is
// the exit code to use when err is non-nil.
func buildPipeline(ctx context.Context, cmd *cobra.Command, log *logrus.Logger, inv *invocation) (*pipeline.Pipeline, int, error) {
	cfg := inv.cfg
	needClient := inv.mode == pipeline.ModeCompare && (!cfg.DryRun || cfg.Baseline.Backend == config.BackendArtifact)

	var gh *github.Client
	if needClient {
		var err error
		gh, err = github.NewClient(cfg.GitHubToken, cfg.APIURL)
		if err != nil {
			return nil, ExitAuthError, err
		}
	}

	ch, err := channel(ctx, cfg, inv, gh)
	if err != nil {
		return nil, ExitUsageError, err
	}

	p := &pipeline.Pipeline{
		Measurer: toolrun.NewRunner(toolrun.Options{
			Directory:                cfg.Directory,
			BuildScript:              cfg.BuildScript,
			SkipStep:                 cfg.SkipStep,
			WindowsVerbatimArguments: cfg.WindowsVerbatimArguments,
			Stdout:                   cmd.ErrOrStderr(),
			Stderr:                   cmd.ErrOrStderr(),
			Executor:                 executor,
		}, log),
		Store:     baseline.NewStore(ch, log),
		Log:       log,
		DryRun:    cfg.DryRun,
		DryRunOut: cmd.OutOrStdout(),
	}
	if gh != nil {
		p.Publisher = comment.NewReconciler(gh, log)
	}
	return p, ExitSuccess, nil
}

// channel builds the baseline transport for the configured backend.
func channel(ctx context.Context, cfg config.Config, inv *invocation, gh *github.Client) (baseline.Channel, error) {
	switch cfg.Baseline.Backend {
	case config.BackendFile:
		dir := cfg.Baseline.Dir
		if dir == "" {
			var err error
			if dir, err = baseline.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return baseline.NewFileChannel(dir)
	case config.BackendS3:
		s3 := cfg.Baseline.S3
		return baseline.NewS3Channel(ctx, baseline.S3Config{
			Bucket:          s3.Bucket,
			Prefix:          s3.Prefix,
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			UsePathStyle:    s3.UsePathStyle,
		})
	default:
		ac := &baseline.ArtifactChannel{Owner: inv.owner, Repo: inv.repo, Name: cfg.Baseline.ArtifactName}
		if gh != nil {
			ac.Finder = gh
		}
		if inv.actx != nil && inv.actx.Runtime.Available() {
			rt := inv.actx.Runtime
			rc, err := github.NewResultsClient(rt.ResultsURL, rt.Token)
			if err != nil {
				return nil, err
			}
			ac.Uploader = rc
		}
		return ac, nil
	}
}

// reportTarget returns the branch and pull request number shown in output.
func reportTarget(inv *invocation) (string, int) {
	if inv.job.PullRequest == nil {
		return inv.job.Key.Branch, 0
	}
	branch := actions.BranchName(inv.ref)
	if pr := inv.actx.PullRequest; pr != nil && pr.Head.Ref != "" {
		branch = pr.Head.Ref
	}
	return branch, inv.job.PullRequest.Number
}

// summary is the markdown appended to the job summary.
func summary(out *pipeline.Outcome) string {
	if out.Body != "" {
		return out.Body
	}
	return comment.WithMarker(output.Markdown(output.Render(out.Comparison.Comparisons)))
}
