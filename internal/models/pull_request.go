package models

import (
	"time"

	"github.com/google/uuid"
)

// Pull request states
const (
	PullRequestStateOpen   = "open"
	PullRequestStateClosed = "closed"
)

// PullRequest represents a GitHub pull request
type PullRequest struct {
	ID              string     `json:"id"`
	RepositoryID    string     `json:"repository_id"`
	GithubID        int64      `json:"github_id"`
	Number          int        `json:"number"`
	Title           string     `json:"title"`
	State           string     `json:"state"`
	Author          *string    `json:"author"`
	MergedAt        *time.Time `json:"merged_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	GithubCreatedAt *time.Time `json:"github_created_at"`
	GithubUpdatedAt *time.Time `json:"github_updated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPullRequest creates a new PullRequest with a generated UUID.
// A merged pull request is always recorded as closed.
func NewPullRequest(repositoryID string, githubID int64, number int, title, state string) *PullRequest {
	if state != PullRequestStateOpen && state != PullRequestStateClosed {
		state = PullRequestStateClosed
	}
	now := time.Now().UTC()
	return &PullRequest{
		ID:           uuid.New().String(),
		RepositoryID: repositoryID,
		GithubID:     githubID,
		Number:       number,
		Title:        title,
		State:        state,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetMergedAt records the merge time and forces the closed state
func (pr *PullRequest) SetMergedAt(t time.Time) {
	pr.MergedAt = &t
	pr.State = PullRequestStateClosed
}

// IsClosed checks if the pull request is closed
func (pr *PullRequest) IsClosed() bool {
	return pr.State == PullRequestStateClosed
}
