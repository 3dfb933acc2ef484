package github

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dshills/sizewatch/internal/comment"
)

const commentsPerPage = 100

// maxCommentPages bounds pagination on very long threads.
const maxCommentPages = 50

type issueComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

type commentRequest struct {
	Body string `json:"body"`
}

var _ comment.API = (*Client)(nil)

func prParams(pr comment.PullRequestRef) map[string]string {
	return map[string]string{
		"owner":  pr.Owner,
		"repo":   pr.Repo,
		"number": strconv.Itoa(pr.Number),
	}
}

// ListComments returns every comment on a pull request, oldest first.
func (c *Client) ListComments(ctx context.Context, pr comment.PullRequestRef) ([]comment.Comment, error) {
	var all []comment.Comment
	for page := 1; page <= maxCommentPages; page++ {
		resp, err := c.rc.R().
			SetContext(ctx).
			SetPathParams(prParams(pr)).
			SetQueryParam("per_page", strconv.Itoa(commentsPerPage)).
			SetQueryParam("page", strconv.Itoa(page)).
			Get("/repos/{owner}/{repo}/issues/{number}/comments")
		if err != nil {
			return nil, fmt.Errorf("listing comments: %w", err)
		}
		if err := checkResponse(resp); err != nil {
			return nil, err
		}
		var batch []issueComment
		if err := decode(resp, &batch); err != nil {
			return nil, err
		}
		for _, ic := range batch {
			all = append(all, comment.Comment{ID: ic.ID, Body: ic.Body})
		}
		if len(batch) < commentsPerPage {
			break
		}
	}
	return all, nil
}

// CreateComment posts a new comment on a pull request.
func (c *Client) CreateComment(ctx context.Context, pr comment.PullRequestRef, body string) (comment.Comment, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(prParams(pr)).
		SetHeader("Content-Type", "application/json").
		SetBody(commentRequest{Body: body}).
		Post("/repos/{owner}/{repo}/issues/{number}/comments")
	if err != nil {
		return comment.Comment{}, fmt.Errorf("creating comment: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return comment.Comment{}, err
	}
	var ic issueComment
	if err := decode(resp, &ic); err != nil {
		return comment.Comment{}, err
	}
	return comment.Comment{ID: ic.ID, Body: ic.Body}, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, pr comment.PullRequestRef, id int64, body string) (comment.Comment, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner": pr.Owner,
			"repo":  pr.Repo,
			"id":    strconv.FormatInt(id, 10),
		}).
		SetHeader("Content-Type", "application/json").
		SetBody(commentRequest{Body: body}).
		Patch("/repos/{owner}/{repo}/issues/comments/{id}")
	if err != nil {
		return comment.Comment{}, fmt.Errorf("updating comment: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return comment.Comment{}, err
	}
	var ic issueComment
	if err := decode(resp, &ic); err != nil {
		return comment.Comment{}, err
	}
	return comment.Comment{ID: ic.ID, Body: ic.Body}, nil
}
