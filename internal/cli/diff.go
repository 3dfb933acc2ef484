package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/sizewatch/internal/compare"
	"github.com/dshills/sizewatch/internal/output"
	"github.com/dshills/sizewatch/internal/sizelimit"
)

var (
	flagDiffThreshold string
	flagDiffFormat    string
	flagDiffOut       string
	flagFailOnChange  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <base.json> <current.json>",
	Short: "Compare two saved size-limit outputs",
	Long: "Diff compares two files produced by `size-limit --json` without running the build. " +
		"It uses the same threshold and formatting as pull request reports.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)

		base, err := readReport(args[0])
		if err != nil {
			fail(log, ExitUsageError, err)
			return nil
		}
		current, err := readReport(args[1])
		if err != nil {
			fail(log, ExitUsageError, err)
			return nil
		}

		threshold, ok := compare.ParseThreshold(flagDiffThreshold)
		if !ok {
			log.Warnf("invalid threshold %q, every change will be reported", flagDiffThreshold)
		}
		if _, err := output.GetWriter(flagDiffFormat); err != nil {
			fail(log, ExitUsageError, err)
			return nil
		}

		result := compare.Compare(&base, current, threshold)
		report := &output.Report{Mode: "diff", Result: result}
		if err := output.WriteReport(report, flagDiffFormat, flagDiffOut, cmd.OutOrStdout()); err != nil {
			fail(log, ExitRuntimeError, fmt.Errorf("writing output: %w", err))
			return nil
		}

		if flagFailOnChange && result.Significant {
			exitCode = ExitLimitExceeded
		}
		return nil
	},
}

func readReport(path string) (sizelimit.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sizelimit.Report{}, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := sizelimit.Parse(string(data))
	if err != nil {
		return sizelimit.Report{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func init() {
	diffCmd.Flags().StringVar(&flagDiffThreshold, "threshold", "", "Minimum percent change that counts as significant")
	diffCmd.Flags().StringVar(&flagDiffFormat, "format", "text", "Output format (text, json, yaml, markdown)")
	diffCmd.Flags().StringVar(&flagDiffOut, "out", "", "Output file path (default: stdout)")
	diffCmd.Flags().BoolVar(&flagFailOnChange, "fail-on-change", false, "Exit 1 when the change is significant")
}
