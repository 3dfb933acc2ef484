package actions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_PullRequest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"action": "synchronize",
		"pull_request": {"number": 12, "head": {"ref": "feature", "sha": "abc"}, "base": {"ref": "master"}}
	}`), 0o644))

	c, err := fromLookup(envMap(map[string]string{
		"GITHUB_REF":            "refs/pull/12/merge",
		"GITHUB_REPOSITORY":     "acme/web",
		"GITHUB_WORKFLOW":       "ci",
		"GITHUB_EVENT_NAME":     "pull_request",
		"GITHUB_EVENT_PATH":     path,
		"ACTIONS_RUNTIME_TOKEN": "tok",
		"ACTIONS_RESULTS_URL":   "https://results",
	}))
	require.NoError(t, err)
	require.NotNil(t, c.PullRequest)
	assert.Equal(t, 12, c.PullRequest.Number)
	assert.Equal(t, "feature", c.PullRequest.Head.Ref)
	assert.Equal(t, "master", c.PullRequest.Base.Ref)
	assert.Equal(t, "acme/web", c.Repository)
	assert.True(t, c.Runtime.Available())
}

func TestFromEnv_Push(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ref":"refs/heads/master"}`), 0o644))

	c, err := fromLookup(envMap(map[string]string{"GITHUB_REF": "refs/heads/master", "GITHUB_EVENT_PATH": path}))
	require.NoError(t, err)
	assert.Nil(t, c.PullRequest)
	assert.False(t, c.Runtime.Available())

	c, err = fromLookup(envMap(map[string]string{"GITHUB_EVENT_PATH": filepath.Join(dir, "missing.json")}))
	require.NoError(t, err)
	assert.Nil(t, c.PullRequest)
}

func TestFromEnv_BadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := fromLookup(envMap(map[string]string{"GITHUB_EVENT_PATH": path}))
	assert.Error(t, err)
}

func TestIsBranch(t *testing.T) {
	tests := []struct {
		ref, branch string
		want        bool
	}{
		{"refs/heads/master", "master", true},
		{"master", "master", true},
		{"refs/heads/master-old", "master", false},
		{"refs/heads/feature/master", "master", false},
		{"refs/pull/1/merge", "master", false},
		{"refs/heads/main", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBranch(tt.ref, tt.branch), "IsBranch(%q, %q)", tt.ref, tt.branch)
	}
	assert.Equal(t, "feature/x", BranchName("refs/heads/feature/x"))
}

func TestAppendStepSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	c := &Context{StepSummary: path}
	require.NoError(t, c.AppendStepSummary("one"))
	require.NoError(t, c.AppendStepSummary("two"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	assert.NoError(t, (&Context{}).AppendStepSummary("ignored"))
}
