package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PullRequest is the subset of a pull_request event payload sizewatch uses.
type PullRequest struct {
	Number int    `json:"number"`
	Head   Ref    `json:"head"`
	Base   Ref    `json:"base"`
	Title  string `json:"title"`
}

// Ref is a branch of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// Runtime holds the credentials the runner grants a job for the results
// service.
type Runtime struct {
	Token      string
	ResultsURL string
}

// Available reports whether artifact upload is possible.
func (r Runtime) Available() bool {
	return r.Token != "" && r.ResultsURL != ""
}

// Context describes the running job.
type Context struct {
	Ref         string
	Repository  string
	Workflow    string
	EventName   string
	RunID       string
	APIURL      string
	StepSummary string
	PullRequest *PullRequest
	Runtime     Runtime
}

type event struct {
	PullRequest *PullRequest `json:"pull_request"`
}

// FromEnv builds a Context from the process environment. The event payload
// at GITHUB_EVENT_PATH is read when set; a missing file is not an error, an
// unreadable or malformed one is.
func FromEnv() (*Context, error) {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (*Context, error) {
	c := &Context{
		Ref:         getenv("GITHUB_REF"),
		Repository:  getenv("GITHUB_REPOSITORY"),
		Workflow:    getenv("GITHUB_WORKFLOW"),
		EventName:   getenv("GITHUB_EVENT_NAME"),
		RunID:       getenv("GITHUB_RUN_ID"),
		APIURL:      getenv("GITHUB_API_URL"),
		StepSummary: getenv("GITHUB_STEP_SUMMARY"),
		Runtime: Runtime{
			Token:      getenv("ACTIONS_RUNTIME_TOKEN"),
			ResultsURL: getenv("ACTIONS_RESULTS_URL"),
		},
	}
	path := getenv("GITHUB_EVENT_PATH")
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading event payload: %w", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parsing event payload %s: %w", path, err)
	}
	if ev.PullRequest != nil && ev.PullRequest.Number > 0 {
		c.PullRequest = ev.PullRequest
	}
	return c, nil
}

// IsBranch reports whether ref names branch, either as refs/heads/<branch>
// or as the bare branch name.
func IsBranch(ref, branch string) bool {
	if branch == "" {
		return false
	}
	return ref == branch || ref == "refs/heads/"+branch
}

// BranchName strips the refs/heads/ prefix from ref.
func BranchName(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// AppendStepSummary appends markdown to the job summary file. It does
// nothing when the job has no summary file.
func (c *Context) AppendStepSummary(markdown string) error {
	if c.StepSummary == "" {
		return nil
	}
	f, err := os.OpenFile(c.StepSummary, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	if _, err := f.WriteString(markdown + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing step summary: %w", err)
	}
	return f.Close()
}
