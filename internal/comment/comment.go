package comment

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// SizeLimitURL is linked from the report heading.
	SizeLimitURL = "https://github.com/ai/size-limit"

	// Marker starts the body of every report comment.
	Marker = "## [size-limit](" + SizeLimitURL + ") report"
)

// PullRequestRef addresses a pull request.
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

func (p PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// Comment is an existing pull-request comment.
type Comment struct {
	ID   int64
	Body string
}

// API is the comment capability the reconciler needs.
type API interface {
	ListComments(ctx context.Context, pr PullRequestRef) ([]Comment, error)
	CreateComment(ctx context.Context, pr PullRequestRef, body string) (Comment, error)
	UpdateComment(ctx context.Context, pr PullRequestRef, id int64, body string) (Comment, error)
}

// PublishError wraps a failure to list, create or update the report comment.
type PublishError struct {
	Op  string
	PR  PullRequestRef
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s comment on %s: %v", e.Op, e.PR, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// WithMarker returns body starting with the marker heading.
func WithMarker(body string) string {
	if strings.HasPrefix(body, Marker) {
		return body
	}
	return Marker + "\r\n" + body
}

// Find returns the first comment whose body starts with the marker.
func Find(comments []Comment) (Comment, bool) {
	for _, c := range comments {
		if strings.HasPrefix(c.Body, Marker) {
			return c, true
		}
	}
	return Comment{}, false
}

// Reconciler publishes the report comment through an API.
type Reconciler struct {
	api API
	log logrus.FieldLogger
}

// NewReconciler creates a Reconciler. A nil logger discards output.
func NewReconciler(api API, log logrus.FieldLogger) *Reconciler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Reconciler{api: api, log: log}
}

// Publish updates the existing marked comment on pr with body, or creates it.
// Errors are *PublishError.
func (r *Reconciler) Publish(ctx context.Context, body string, pr PullRequestRef) error {
	body = WithMarker(body)

	comments, err := r.api.ListComments(ctx, pr)
	if err != nil {
		return &PublishError{Op: "list", PR: pr, Err: err}
	}

	if existing, ok := Find(comments); ok {
		if _, err := r.api.UpdateComment(ctx, pr, existing.ID, body); err != nil {
			return &PublishError{Op: "update", PR: pr, Err: err}
		}
		r.log.WithField("comment_id", existing.ID).Infof("updated size report on %s", pr)
		return nil
	}

	created, err := r.api.CreateComment(ctx, pr, body)
	if err != nil {
		return &PublishError{Op: "create", PR: pr, Err: err}
	}
	r.log.WithField("comment_id", created.ID).Infof("created size report on %s", pr)
	return nil
}
