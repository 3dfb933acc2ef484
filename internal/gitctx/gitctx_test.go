package gitctx

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("command %v failed: %v\n%s", args, err, out)
		}
	}

	run("git", "init")
	run("git", "checkout", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("git", "add", "-A")
	run("git", "commit", "-m", "init")
	return dir
}

func TestGetRepoMeta(t *testing.T) {
	dir := setupTestRepo(t)

	meta, err := GetRepoMeta(dir)
	if err != nil {
		t.Fatalf("GetRepoMeta error: %v", err)
	}
	if meta.Branch != "main" {
		t.Errorf("Branch = %q, want %q", meta.Branch, "main")
	}
	if got := meta.Ref(); got != "refs/heads/main" {
		t.Errorf("Ref() = %q, want %q", got, "refs/heads/main")
	}
	if len(meta.Head) != 40 {
		t.Errorf("Head length = %d, want 40", len(meta.Head))
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(meta.Root)
	if got != want {
		t.Errorf("Root = %q, want %q", got, want)
	}
}

func TestGetRepoMeta_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	if _, err := GetRepoMeta(dir); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestRef_Detached(t *testing.T) {
	if got := (RepoMeta{Branch: "HEAD"}).Ref(); got != "" {
		t.Errorf("Ref() = %q, want empty for detached HEAD", got)
	}
	if got := (RepoMeta{}).Ref(); got != "" {
		t.Errorf("Ref() = %q, want empty", got)
	}
}
