package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewComment represents a pull request review comment
type ReviewComment struct {
	ID              string     `json:"id"`
	PullRequestID   string     `json:"pull_request_id"`
	GithubID        int64      `json:"github_id"`
	Author          *string    `json:"author"`
	Body            string     `json:"body"`
	Path            string     `json:"path"`
	Position        int        `json:"position"`
	Line            *int       `json:"line"`
	GithubCreatedAt *time.Time `json:"github_created_at"`
	GithubUpdatedAt *time.Time `json:"github_updated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewReviewComment creates a new ReviewComment with a generated UUID
func NewReviewComment(pullRequestID string, githubID int64, body, path string, position int) *ReviewComment {
	now := time.Now().UTC()
	return &ReviewComment{
		ID:            uuid.New().String(),
		PullRequestID: pullRequestID,
		GithubID:      githubID,
		Body:          body,
		Path:          path,
		Position:      position,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
