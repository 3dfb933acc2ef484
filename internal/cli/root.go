package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/sizewatch/internal/logging"
	"github.com/dshills/sizewatch/internal/redact"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess       = 0
	ExitLimitExceeded = 1
	ExitUsageError    = 2
	ExitAuthError     = 3
	ExitRuntimeError  = 4
)

var (
	flagConfig string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "sizewatch",
	Short: "Bundle size reports for pull requests",
	Long: "Sizewatch runs size-limit, records the result on the main branch and comments the size " +
		"difference on pull requests.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: .sizewatch.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

// newLogger builds the logger for a command, writing to its stderr with
// secrets redacted.
func newLogger(cmd *cobra.Command) *logrus.Logger {
	opts := logging.OptionsFromEnv()
	opts.Debug = opts.Debug || flagDebug
	log := logging.New(cmd.ErrOrStderr(), opts)
	redact.Mask(log)
	return log
}

// fail logs err and sets the exit code. Handlers return nil afterwards so
// cobra does not print the error a second time.
func fail(log logrus.FieldLogger, code int, err error) {
	log.Error(err.Error())
	exitCode = code
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sizewatch version",
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd.OutOrStdout(), "sizewatch version %s\n", version)
	},
}
