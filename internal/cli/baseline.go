package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sizewatch/internal/baseline"
	"github.com/dshills/sizewatch/internal/config"
	"github.com/dshills/sizewatch/internal/github"
	"github.com/dshills/sizewatch/internal/pipeline"
	"github.com/dshills/sizewatch/internal/redact"
)

var (
	flagBaselineFormat string
	flagShowBackend    string
	flagStoreDir       string
	flagShowWorkflow   string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect and manage stored baselines",
}

var baselineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the baseline for the main branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		overrides := map[string]interface{}{}
		if flagShowBackend != "" {
			overrides["baseline.backend"] = flagShowBackend
		}
		if flagStoreDir != "" {
			overrides["baseline.dir"] = flagStoreDir
		}
		if flagShowWorkflow != "" {
			overrides["workflow_name"] = flagShowWorkflow
		}
		cfg, err := config.Load(flagConfig, overrides)
		if err == nil {
			redact.Mask(log, cfg.GitHubToken, cfg.Baseline.S3.SecretAccessKey)
			err = cfg.Validate()
		}
		if err != nil {
			fail(log, ExitUsageError, err)
			return nil
		}
		if cfg.WorkflowName == "" {
			fail(log, ExitUsageError, errors.New("workflow_name is not set"))
			return nil
		}

		inv := &invocation{cfg: cfg, mode: pipeline.ModeCompare}
		var gh *github.Client
		if cfg.Baseline.Backend == config.BackendArtifact {
			if inv.owner, inv.repo, err = repository(cfg); err != nil {
				fail(log, ExitUsageError, err)
				return nil
			}
			if gh, err = github.NewClient(cfg.GitHubToken, cfg.APIURL); err != nil {
				fail(log, ExitAuthError, err)
				return nil
			}
		}
		ch, err := channel(cmd.Context(), cfg, inv, gh)
		if err != nil {
			fail(log, ExitUsageError, err)
			return nil
		}

		key := baseline.Key{Branch: cfg.MainBranch, Workflow: cfg.WorkflowName}
		rec, ok := baseline.NewStore(ch, log).LoadRecord(cmd.Context(), key)
		if !ok {
			fail(log, ExitRuntimeError, fmt.Errorf("no baseline for %s", key))
			return nil
		}

		var data []byte
		switch flagBaselineFormat {
		case "yaml", "yml":
			data, err = yaml.Marshal(rec)
		default:
			data, err = json.MarshalIndent(rec, "", "  ")
		}
		if err != nil {
			return err
		}
		printf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	},
}

var baselineClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove baselines stored by the file backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		c, err := fileChannel(flagStoreDir)
		if err != nil {
			fail(log, ExitRuntimeError, err)
			return nil
		}
		n, err := c.Clear()
		if err != nil {
			fail(log, ExitRuntimeError, fmt.Errorf("clearing baselines: %w", err))
			return nil
		}
		printf(cmd.OutOrStdout(), "Removed %d baseline(s) from %s.\n", n, c.Dir())
		return nil
	},
}

var baselineStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file backend statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)
		c, err := fileChannel(flagStoreDir)
		if err != nil {
			fail(log, ExitRuntimeError, err)
			return nil
		}
		stats, err := c.GetStats()
		if err != nil {
			fail(log, ExitRuntimeError, fmt.Errorf("reading baseline stats: %w", err))
			return nil
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		printf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	},
}

// fileChannel opens the file backend directory: dir when given, otherwise
// the configured baseline.dir, otherwise the user cache directory.
func fileChannel(dir string) (*baseline.FileChannel, error) {
	if dir == "" {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return nil, err
		}
		dir = cfg.Baseline.Dir
	}
	if dir == "" {
		var err error
		if dir, err = baseline.DefaultDir(); err != nil {
			return nil, err
		}
	}
	c, err := baseline.NewFileChannel(dir)
	if err != nil {
		return nil, fmt.Errorf("opening baseline directory: %w", err)
	}
	return c, nil
}

func init() {
	baselineShowCmd.Flags().StringVar(&flagBaselineFormat, "format", "json", "Output format (json, yaml)")
	baselineShowCmd.Flags().StringVar(&flagShowBackend, "backend", "", "Baseline backend (artifact, file, s3)")
	baselineShowCmd.Flags().StringVar(&flagStoreDir, "baseline-dir", "", "Directory for the file backend")
	baselineShowCmd.Flags().StringVar(&flagShowWorkflow, "workflow-name", "", "Workflow that records the baseline")
	baselineClearCmd.Flags().StringVar(&flagStoreDir, "baseline-dir", "", "Directory for the file backend")
	baselineStatsCmd.Flags().StringVar(&flagStoreDir, "baseline-dir", "", "Directory for the file backend")

	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineClearCmd)
	baselineCmd.AddCommand(baselineStatsCmd)
}
