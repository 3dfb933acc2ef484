package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/sizewatch/internal/comment"
	"github.com/dshills/sizewatch/internal/config"
	"github.com/dshills/sizewatch/internal/toolrun"
)

// resetFlags restores every flag of the tested commands to its default and
// clears the exit code.
func resetFlags() {
	for _, cmd := range []*cobra.Command{
		runCmd, recordCmd, compareCmd, diffCmd,
		baselineShowCmd, baselineClearCmd, baselineStatsCmd,
	} {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	flagConfig = ""
	flagDebug = false
	exitCode = ExitSuccess
}

// isolate runs the test in an empty directory with no sizewatch or Actions
// environment.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range config.Keys() {
		name := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		t.Setenv("SIZEWATCH_"+name, "")
		t.Setenv("INPUT_"+name, "")
	}
	for _, name := range []string{
		"GITHUB_ACTIONS", "GITHUB_REF", "GITHUB_REPOSITORY", "GITHUB_WORKFLOW", "GITHUB_TOKEN",
		"GITHUB_API_URL", "GITHUB_EVENT_NAME", "GITHUB_EVENT_PATH", "GITHUB_RUN_ID",
		"GITHUB_STEP_SUMMARY", "ACTIONS_RUNTIME_TOKEN", "ACTIONS_RESULTS_URL", "RUNNER_DEBUG",
		"AWS_REGION",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(mustGetwd(t)))
	resetFlags()
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return wd
}

// fakeExecutor answers size-limit runs with canned output and records every
// other command.
type fakeExecutor struct {
	outputs []string
	status  int
	other   []string
}

func (f *fakeExecutor) Run(_ context.Context, c toolrun.Command) (int, error) {
	if c.Name != "npx" {
		f.other = append(f.other, c.String())
		return 0, nil
	}
	if len(f.outputs) == 0 {
		return 0, nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	_, _ = c.Stdout.Write([]byte(out))
	return f.status, nil
}

func useExecutor(t *testing.T, f *fakeExecutor) {
	t.Helper()
	executor = f
	t.Cleanup(func() { executor = nil })
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return out.String(), errOut.String()
}

func readJSON(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return m
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	if m := buildOverrides(runCmd); len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_ChangedFlags(t *testing.T) {
	resetFlags()
	defer resetFlags()
	for name, value := range map[string]string{
		"threshold":    "5",
		"backend":      "file",
		"step-summary": "false",
		"skip-step":    "install",
	} {
		if err := runCmd.Flags().Set(name, value); err != nil {
			t.Fatal(err)
		}
	}

	m := buildOverrides(runCmd)
	want := map[string]interface{}{
		"threshold":        "5",
		"baseline.backend": "file",
		"step_summary":     false,
		"skip_step":        "install",
	}
	if len(m) != len(want) {
		t.Fatalf("buildOverrides() = %v, want %v", m, want)
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("override %s = %v, want %v", k, m[k], v)
		}
	}
}

func TestRunFlagsAreConfigKeys(t *testing.T) {
	known := map[string]bool{}
	for _, k := range config.Keys() {
		known[k] = true
	}
	for flag, key := range runFlags {
		if !known[key] {
			t.Errorf("flag --%s maps to unknown config key %q", flag, key)
		}
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("flag --%s is not registered on run", flag)
		}
	}
}

// --- run / record / compare tests ---

func TestRecordThenCompare_FileBackend(t *testing.T) {
	isolate(t)
	store := t.TempDir()
	fake := &fakeExecutor{outputs: []string{
		`[{"name":"index.js","size":100}]`,
		`[{"name":"index.js","size":150}]`,
	}}
	useExecutor(t, fake)

	execute(t, recordCmd,
		"--backend", "file", "--baseline-dir", store, "--workflow-name", "ci",
		"--skip-step", "build", "--format", "json", "--out", "record.json")
	if exitCode != ExitSuccess {
		t.Fatalf("record exit code = %d, want %d", exitCode, ExitSuccess)
	}
	if got := readJSON(t, "record.json")["mode"]; got != "record" {
		t.Errorf("record output mode = %v, want record", got)
	}

	summary := filepath.Join(t.TempDir(), "summary.md")
	t.Setenv("GITHUB_STEP_SUMMARY", summary)
	t.Setenv("GITHUB_REPOSITORY", "acme/web")
	resetFlags()

	stdout, _ := execute(t, compareCmd,
		"--backend", "file", "--baseline-dir", store, "--workflow-name", "ci",
		"--skip-step", "build", "--threshold", "10", "--pr", "3", "--dry-run",
		"--format", "json", "--out", "compare.json")
	if exitCode != ExitSuccess {
		t.Fatalf("compare exit code = %d, want %d", exitCode, ExitSuccess)
	}
	if !strings.HasPrefix(stdout, comment.Marker) {
		t.Errorf("dry run output does not start with the marker:\n%s", stdout)
	}
	if !strings.Contains(stdout, "| index.js | 150 B | +50% 🔺 |") {
		t.Errorf("dry run output missing change row:\n%s", stdout)
	}

	report := readJSON(t, "compare.json")
	if report["mode"] != "compare" || report["pullRequest"] != float64(3) {
		t.Errorf("compare output = %v", report)
	}
	data, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("reading step summary: %v", err)
	}
	if !strings.Contains(string(data), comment.Marker) {
		t.Errorf("step summary missing report:\n%s", data)
	}
}

func TestCompare_DryRunReportOnStdout(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/web")
	useExecutor(t, &fakeExecutor{outputs: []string{`[{"name":"index.js","size":10}]`}})

	stdout, _ := execute(t, compareCmd,
		"--backend", "file", "--baseline-dir", t.TempDir(), "--workflow-name", "ci",
		"--skip-step", "build", "--pr", "7", "--dry-run", "--format", "json")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", exitCode, ExitSuccess)
	}
	if !strings.HasPrefix(stdout, comment.Marker) {
		t.Errorf("stdout does not start with the comment body:\n%s", stdout)
	}
	if !strings.Contains(stdout, `"mode": "compare"`) || !strings.Contains(stdout, `"pullRequest": 7`) {
		t.Errorf("stdout missing JSON report:\n%s", stdout)
	}
}

func TestDiff_ReportOnStdout(t *testing.T) {
	isolate(t)
	base := writeFile(t, "base.json", `[{"name":"a.js","size":100}]`)
	current := writeFile(t, "current.json", `[{"name":"a.js","size":200}]`)

	stdout, _ := execute(t, diffCmd, base, current, "--format", "markdown")
	if !strings.Contains(stdout, "| a.js | 200 B | +100% 🔺 |") {
		t.Errorf("diff stdout = %s", stdout)
	}
}

func TestRecord_BreachExitsOne(t *testing.T) {
	isolate(t)
	useExecutor(t, &fakeExecutor{outputs: []string{`[{"name":"a.js","size":1}]`}, status: 1})

	_, stderr := execute(t, recordCmd,
		"--backend", "file", "--baseline-dir", t.TempDir(), "--workflow-name", "ci",
		"--skip-step", "build", "--out", "out.txt")
	if exitCode != ExitLimitExceeded {
		t.Errorf("exit code = %d, want %d", exitCode, ExitLimitExceeded)
	}
	if !strings.Contains(stderr, "Size limit has been exceeded.") {
		t.Errorf("stderr missing breach message:\n%s", stderr)
	}
}

func TestRecord_MalformedOutputIsRuntimeError(t *testing.T) {
	isolate(t)
	useExecutor(t, &fakeExecutor{outputs: []string{"not json"}})

	execute(t, recordCmd,
		"--backend", "file", "--baseline-dir", t.TempDir(), "--workflow-name", "ci",
		"--skip-step", "build")
	if exitCode != ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", exitCode, ExitRuntimeError)
	}
}

func TestRecord_InstallAndBuild(t *testing.T) {
	isolate(t)
	fake := &fakeExecutor{outputs: []string{`[]`}}
	useExecutor(t, fake)

	execute(t, recordCmd,
		"--backend", "file", "--baseline-dir", t.TempDir(), "--workflow-name", "ci",
		"--build-script", "bundle", "--out", "out.txt")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", exitCode, ExitSuccess)
	}
	want := []string{"npm install", "npm run bundle"}
	if strings.Join(fake.other, ",") != strings.Join(want, ",") {
		t.Errorf("commands = %v, want %v", fake.other, want)
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		args []string
		env  map[string]string
	}{
		{
			name: "pull request run without a pull request",
			cmd:  runCmd,
			args: []string{"--backend", "file", "--workflow-name", "ci"},
			env:  map[string]string{"GITHUB_REF": "refs/heads/feature", "GITHUB_REPOSITORY": "acme/web"},
		},
		{
			name: "invalid skip step",
			cmd:  recordCmd,
			args: []string{"--skip-step", "test"},
		},
		{
			name: "invalid format",
			cmd:  recordCmd,
			args: []string{"--format", "xml"},
		},
		{
			name: "artifact backend without workflow",
			cmd:  recordCmd,
			env:  map[string]string{"GITHUB_REPOSITORY": "acme/web"},
		},
		{
			name: "compare without repository",
			cmd:  compareCmd,
			args: []string{"--backend", "file", "--workflow-name", "ci", "--pr", "3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fake := &fakeExecutor{}
			useExecutor(t, fake)

			execute(t, tt.cmd, tt.args...)
			if exitCode != ExitUsageError {
				t.Errorf("exit code = %d, want %d", exitCode, ExitUsageError)
			}
			if len(fake.other) != 0 {
				t.Errorf("commands ran before the usage error: %v", fake.other)
			}
		})
	}
}

func TestCompare_MissingTokenIsAuthError(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/web")
	fake := &fakeExecutor{}
	useExecutor(t, fake)

	execute(t, compareCmd, "--backend", "file", "--baseline-dir", t.TempDir(), "--workflow-name", "ci", "--pr", "3")
	if exitCode != ExitAuthError {
		t.Errorf("exit code = %d, want %d", exitCode, ExitAuthError)
	}
	if len(fake.other) != 0 {
		t.Errorf("commands ran without a token: %v", fake.other)
	}
}

func TestRun_MainBranchRecords(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_REF", "refs/heads/main")
	store := t.TempDir()
	useExecutor(t, &fakeExecutor{outputs: []string{`[{"name":"a.js","size":1}]`}})

	execute(t, runCmd,
		"--main-branch", "main", "--backend", "file", "--baseline-dir", store,
		"--workflow-name", "ci", "--skip-step", "build", "--format", "json", "--out", "out.json")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", exitCode, ExitSuccess)
	}
	report := readJSON(t, "out.json")
	if report["mode"] != "record" || report["branch"] != "main" {
		t.Errorf("output = %v", report)
	}
}

// --- diff tests ---

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestDiff(t *testing.T) {
	isolate(t)
	base := writeFile(t, "base.json", `[{"name":"a.js","size":100},{"name":"b.js","size":10}]`)
	current := writeFile(t, "current.json", `[{"name":"a.js","size":130},{"name":"c.js","size":5}]`)

	execute(t, diffCmd, base, current, "--format", "json", "--out", "diff.json", "--fail-on-change")
	if exitCode != ExitLimitExceeded {
		t.Errorf("exit code = %d, want %d", exitCode, ExitLimitExceeded)
	}
	result, ok := readJSON(t, "diff.json")["result"].(map[string]interface{})
	if !ok {
		t.Fatal("diff output has no result")
	}
	if result["significant"] != true {
		t.Errorf("significant = %v, want true", result["significant"])
	}
}

func TestDiff_BelowThreshold(t *testing.T) {
	isolate(t)
	base := writeFile(t, "base.json", `[{"name":"a.js","size":100}]`)
	current := writeFile(t, "current.json", `[{"name":"a.js","size":101}]`)

	execute(t, diffCmd, base, current, "--threshold", "5", "--format", "markdown", "--out", "diff.md", "--fail-on-change")
	if exitCode != ExitSuccess {
		t.Errorf("exit code = %d, want %d", exitCode, ExitSuccess)
	}
}

func TestDiff_MalformedInput(t *testing.T) {
	isolate(t)
	base := writeFile(t, "base.json", `not json`)
	current := writeFile(t, "current.json", `[]`)

	execute(t, diffCmd, base, current)
	if exitCode != ExitUsageError {
		t.Errorf("exit code = %d, want %d", exitCode, ExitUsageError)
	}
}

// --- baseline tests ---

func TestBaselineShowClearStats(t *testing.T) {
	isolate(t)
	store := t.TempDir()
	useExecutor(t, &fakeExecutor{outputs: []string{`[{"name":"a.js","size":42}]`}})
	execute(t, recordCmd,
		"--backend", "file", "--baseline-dir", store, "--workflow-name", "ci",
		"--skip-step", "build", "--out", "out.txt")
	if exitCode != ExitSuccess {
		t.Fatalf("record exit code = %d", exitCode)
	}

	stdout, _ := execute(t, baselineCmd, "show", "--backend", "file", "--baseline-dir", store, "--workflow-name", "ci")
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &rec); err != nil {
		t.Fatalf("baseline show output is not JSON: %v\n%s", err, stdout)
	}
	if rec["version"] != float64(1) || rec["branch"] != "master" || rec["workflow"] != "ci" {
		t.Errorf("baseline record = %v", rec)
	}

	stdout, _ = execute(t, baselineCmd, "stats", "--baseline-dir", store)
	if !strings.Contains(stdout, `"entries": 1`) {
		t.Errorf("stats output = %s", stdout)
	}

	stdout, _ = execute(t, baselineCmd, "clear", "--baseline-dir", store)
	if !strings.Contains(stdout, "Removed 1 baseline(s)") {
		t.Errorf("clear output = %s", stdout)
	}

	resetFlags()
	execute(t, baselineCmd, "show", "--backend", "file", "--baseline-dir", store, "--workflow-name", "ci")
	if exitCode != ExitRuntimeError {
		t.Errorf("show after clear exit code = %d, want %d", exitCode, ExitRuntimeError)
	}
}

// --- config command tests ---

func TestConfigInit_CreatesFile(t *testing.T) {
	isolate(t)

	stdout, _ := execute(t, configCmd, "init")
	if !strings.Contains(stdout, "Config file created") {
		t.Errorf("init output = %s", stdout)
	}
	data, err := os.ReadFile(config.FileName)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), "main_branch: master") {
		t.Errorf("config file = %s", data)
	}
}

func TestConfigInit_DoesNotOverwrite(t *testing.T) {
	isolate(t)
	writeFile(t, config.FileName, "threshold: \"7\"\n")

	_, stderr := execute(t, configCmd, "init")
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("init stderr = %s", stderr)
	}
	data, err := os.ReadFile(config.FileName)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "threshold: \"7\"\n" {
		t.Errorf("config file was overwritten: %s", data)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_TOKEN", "ghp_secret")

	execute(t, configCmd, "set", "threshold", "12")
	execute(t, configCmd, "set", "baseline.backend", "s3")

	stdout, _ := execute(t, configCmd, "show")
	var cfg config.Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("show output is not JSON: %v\n%s", err, stdout)
	}
	if cfg.Threshold != "12" {
		t.Errorf("threshold = %q, want 12", cfg.Threshold)
	}
	if cfg.Baseline.Backend != config.BackendS3 {
		t.Errorf("backend = %q, want s3", cfg.Baseline.Backend)
	}
	if cfg.GitHubToken != "****" {
		t.Errorf("token = %q, want it masked", cfg.GitHubToken)
	}
	if !cfg.StepSummary {
		t.Error("step_summary default lost by config set")
	}
}

func TestConfigSet_UnknownKey(t *testing.T) {
	isolate(t)
	configCmd.SetArgs([]string{"set", "nope", "1"})
	configCmd.SetOut(&bytes.Buffer{})
	configCmd.SetErr(&bytes.Buffer{})
	if err := configCmd.Execute(); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestVersion(t *testing.T) {
	stdout, _ := execute(t, versionCmd)
	if stdout != "sizewatch version "+version+"\n" {
		t.Errorf("version output = %q", stdout)
	}
}
