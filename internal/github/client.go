package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"
	userAgent     = "sizewatch"
)

var (
	// ErrNotFound is matched (via errors.Is) by API errors with status 404
	// and by lookups that find nothing.
	ErrNotFound = errors.New("not found")

	// ErrNoToken is returned when a client is created without a token.
	ErrNoToken = errors.New("GitHub token is not set (github_token input or GITHUB_TOKEN)")
)

// APIError is a non-2xx response from GitHub.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
	}
}

// Is makes a 404 APIError match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client provides access to the GitHub REST API.
type Client struct {
	rc *resty.Client
}

// NewClient creates a REST client. An empty apiURL uses https://api.github.com.
func NewClient(token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	return newClient(token, apiURL, nil), nil
}

func newClient(token, apiURL string, hc *http.Client) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	rc := resty.New()
	if hc != nil {
		rc = resty.NewWithClient(hc)
	}
	rc.SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", apiVersion).
		SetHeader("User-Agent", userAgent)
	return &Client{rc: rc}
}

// checkResponse converts a non-2xx response into an *APIError.
func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		msg = body.Message
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

func decode(resp *resty.Response, v interface{}) error {
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
