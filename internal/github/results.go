package github

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	artifactService = "/twirp/github.actions.results.api.v1.ArtifactService/"
	artifactVersion = 4
	resultsScope    = "Actions.Results"
)

// ErrNoRuntime is returned when the Actions runtime token or results URL is
// missing, which is the case outside of a workflow job.
var ErrNoRuntime = errors.New("artifact upload requires ACTIONS_RUNTIME_TOKEN and ACTIONS_RESULTS_URL")

// BackendIDs identify the workflow run and job to the artifact service.
type BackendIDs struct {
	WorkflowRun string
	WorkflowJob string
}

// ParseBackendIDs extracts the run and job backend ids from the scope claim
// of an Actions runtime token.
func ParseBackendIDs(token string) (BackendIDs, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return BackendIDs{}, errors.New("runtime token is not a JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return BackendIDs{}, fmt.Errorf("decoding runtime token: %w", err)
	}
	var claims struct {
		Scope string `json:"scp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return BackendIDs{}, fmt.Errorf("parsing runtime token claims: %w", err)
	}
	for _, scope := range strings.Fields(claims.Scope) {
		fields := strings.Split(scope, ":")
		if len(fields) != 3 || fields[0] != resultsScope {
			continue
		}
		if fields[1] == "" || fields[2] == "" {
			break
		}
		return BackendIDs{WorkflowRun: fields[1], WorkflowJob: fields[2]}, nil
	}
	return BackendIDs{}, errors.New("runtime token has no Actions.Results scope")
}

// ResultsClient uploads artifacts through the Actions results service.
type ResultsClient struct {
	rc   *resty.Client
	blob *resty.Client // signed upload URLs carry their own credentials
	ids  BackendIDs
}

// NewResultsClient creates a client for the results service at resultsURL.
func NewResultsClient(resultsURL, runtimeToken string) (*ResultsClient, error) {
	return newResultsClient(resultsURL, runtimeToken, nil)
}

func newResultsClient(resultsURL, runtimeToken string, hc *http.Client) (*ResultsClient, error) {
	if resultsURL == "" || runtimeToken == "" {
		return nil, ErrNoRuntime
	}
	ids, err := ParseBackendIDs(runtimeToken)
	if err != nil {
		return nil, err
	}
	rc, blob := resty.New(), resty.New()
	if hc != nil {
		rc, blob = resty.NewWithClient(hc), resty.NewWithClient(hc)
	}
	rc.SetBaseURL(strings.TrimRight(resultsURL, "/")).
		SetAuthToken(runtimeToken).
		SetHeader("User-Agent", userAgent)
	blob.SetHeader("User-Agent", userAgent)
	return &ResultsClient{rc: rc, blob: blob, ids: ids}, nil
}

type createArtifactRequest struct {
	WorkflowRunBackendID string `json:"workflowRunBackendId"`
	WorkflowJobBackendID string `json:"workflowJobRunBackendId"`
	Name                 string `json:"name"`
	Version              int    `json:"version"`
}

type createArtifactResponse struct {
	OK              bool   `json:"ok"`
	SignedUploadURL string `json:"signedUploadUrl"`
}

type finalizeArtifactRequest struct {
	WorkflowRunBackendID string `json:"workflowRunBackendId"`
	WorkflowJobBackendID string `json:"workflowJobRunBackendId"`
	Name                 string `json:"name"`
	Size                 string `json:"size"`
	Hash                 string `json:"hash,omitempty"`
}

type finalizeArtifactResponse struct {
	OK         bool   `json:"ok"`
	ArtifactID string `json:"artifactId"`
}

// UploadArtifact zips files and uploads them as artifact name of the current
// job. The artifact becomes visible only once it is finalized, so a failed
// upload never leaves a partial artifact behind.
func (c *ResultsClient) UploadArtifact(ctx context.Context, name string, files []ArtifactFile) (int64, error) {
	archive, err := ZipFiles(files)
	if err != nil {
		return 0, err
	}

	var created createArtifactResponse
	if err := c.twirp(ctx, "CreateArtifact", createArtifactRequest{
		WorkflowRunBackendID: c.ids.WorkflowRun,
		WorkflowJobBackendID: c.ids.WorkflowJob,
		Name:                 name,
		Version:              artifactVersion,
	}, &created); err != nil {
		return 0, err
	}
	if !created.OK || created.SignedUploadURL == "" {
		return 0, fmt.Errorf("creating artifact %s: service refused", name)
	}

	resp, err := c.blob.R().
		SetContext(ctx).
		SetHeader("x-ms-blob-type", "BlockBlob").
		SetHeader("Content-Type", "application/zip").
		SetBody(archive).
		Put(created.SignedUploadURL)
	if err != nil {
		return 0, fmt.Errorf("uploading artifact %s: %w", name, err)
	}
	if err := checkResponse(resp); err != nil {
		return 0, fmt.Errorf("uploading artifact %s: %w", name, err)
	}

	sum := sha256.Sum256(archive)
	var finalized finalizeArtifactResponse
	if err := c.twirp(ctx, "FinalizeArtifact", finalizeArtifactRequest{
		WorkflowRunBackendID: c.ids.WorkflowRun,
		WorkflowJobBackendID: c.ids.WorkflowJob,
		Name:                 name,
		Size:                 strconv.Itoa(len(archive)),
		Hash:                 "sha256:" + hex.EncodeToString(sum[:]),
	}, &finalized); err != nil {
		return 0, err
	}
	if !finalized.OK {
		return 0, fmt.Errorf("finalizing artifact %s: service refused", name)
	}
	id, err := strconv.ParseInt(finalized.ArtifactID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("finalizing artifact %s: invalid id %q", name, finalized.ArtifactID)
	}
	return id, nil
}

func (c *ResultsClient) twirp(ctx context.Context, method string, in, out interface{}) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(in).
		Post(artifactService + method)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return decode(resp, out)
}
