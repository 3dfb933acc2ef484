package baseline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/sizewatch/internal/github"
)

// ArtifactFinder locates and downloads artifacts of earlier workflow runs.
type ArtifactFinder interface {
	LatestArtifact(ctx context.Context, owner, repo, workflow, branch, name string) (github.Artifact, error)
	DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) ([]byte, error)
}

// ArtifactUploader uploads an artifact for the current job.
type ArtifactUploader interface {
	UploadArtifact(ctx context.Context, name string, files []github.ArtifactFile) (int64, error)
}

// ArtifactChannel stores records as GitHub Actions artifacts. Put uploads
// to the running job, so the key's branch and workflow are those of the
// current run. Get reads the newest completed run of the key's workflow on
// the key's branch.
type ArtifactChannel struct {
	Owner    string
	Repo     string
	Name     string
	Finder   ArtifactFinder
	Uploader ArtifactUploader
}

// Put uploads data as the channel's artifact.
func (c *ArtifactChannel) Put(ctx context.Context, _ Key, data []byte) error {
	if c.Uploader == nil {
		return errors.New("artifact upload is only available inside a GitHub Actions job")
	}
	if _, err := c.Uploader.UploadArtifact(ctx, c.artifactName(), []github.ArtifactFile{{Name: FileName, Data: data}}); err != nil {
		return err
	}
	return nil
}

// Get downloads the newest artifact recorded for key.
func (c *ArtifactChannel) Get(ctx context.Context, key Key) ([]byte, error) {
	if c.Finder == nil {
		return nil, errors.New("artifact download requires a GitHub client")
	}
	artifact, err := c.Finder.LatestArtifact(ctx, c.Owner, c.Repo, WorkflowFile(key.Workflow), key.Branch, c.artifactName())
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	archive, err := c.Finder.DownloadArtifact(ctx, c.Owner, c.Repo, artifact.ID)
	if err != nil {
		return nil, err
	}
	data, err := github.ReadZipFile(archive, FileName)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, fmt.Errorf("artifact %d has no %s", artifact.ID, FileName)
		}
		return nil, err
	}
	return data, nil
}

func (c *ArtifactChannel) artifactName() string {
	if c.Name == "" {
		return DefaultArtifactName
	}
	return c.Name
}

// WorkflowFile returns the workflow file name for a workflow_name setting,
// appending ".yml" unless it already has a YAML extension.
func WorkflowFile(workflow string) string {
	if strings.HasSuffix(workflow, ".yml") || strings.HasSuffix(workflow, ".yaml") {
		return workflow
	}
	return workflow + ".yml"
}
