package github

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// runsPerPage limits how many recent completed runs are searched for an
// artifact.
const runsPerPage = 20

// WorkflowRun is a completed run of a workflow.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	HeadBranch string    `json:"head_branch"`
	HeadSHA    string    `json:"head_sha"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is a file bundle uploaded by a workflow run.
type Artifact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SizeInBytes int64     `json:"size_in_bytes"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListWorkflowRuns returns the most recent completed runs of a workflow on
// branch, newest first, whatever their conclusion. A run that breached the
// size limit still uploaded its baseline. workflow is the workflow file name, e.g. "ci.yml".
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo, workflow, branch string) ([]WorkflowRun, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner":    owner,
			"repo":     repo,
			"workflow": workflow,
		}).
		SetQueryParams(map[string]string{
			"branch":   branch,
			"status":   "completed",
			"per_page": strconv.Itoa(runsPerPage),
		}).
		Get("/repos/{owner}/{repo}/actions/workflows/{workflow}/runs")
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var body struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := decode(resp, &body); err != nil {
		return nil, err
	}
	return body.WorkflowRuns, nil
}

// ListRunArtifacts returns the artifacts named name uploaded by a run.
func (c *Client) ListRunArtifacts(ctx context.Context, owner, repo string, runID int64, name string) ([]Artifact, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner": owner,
			"repo":  repo,
			"run":   strconv.FormatInt(runID, 10),
		}).
		SetQueryParam("name", name).
		Get("/repos/{owner}/{repo}/actions/runs/{run}/artifacts")
	if err != nil {
		return nil, fmt.Errorf("listing run artifacts: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var body struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := decode(resp, &body); err != nil {
		return nil, err
	}
	return body.Artifacts, nil
}

// LatestArtifact finds the newest unexpired artifact named name produced by
// a completed run of workflow on branch. It returns ErrNotFound when no
// run has one.
func (c *Client) LatestArtifact(ctx context.Context, owner, repo, workflow, branch, name string) (Artifact, error) {
	runs, err := c.ListWorkflowRuns(ctx, owner, repo, workflow, branch)
	if err != nil {
		return Artifact{}, err
	}
	for _, run := range runs {
		artifacts, err := c.ListRunArtifacts(ctx, owner, repo, run.ID, name)
		if err != nil {
			return Artifact{}, err
		}
		for _, a := range artifacts {
			if a.Name == name && !a.Expired {
				return a, nil
			}
		}
	}
	return Artifact{}, fmt.Errorf("artifact %q on branch %s: %w", name, branch, ErrNotFound)
}

// DownloadArtifact returns the zip archive of an artifact.
func (c *Client) DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) ([]byte, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner": owner,
			"repo":  repo,
			"id":    strconv.FormatInt(artifactID, 10),
		}).
		Get("/repos/{owner}/{repo}/actions/artifacts/{id}/zip")
	if err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
