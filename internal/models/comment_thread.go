package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentThread represents a review discussion anchored at a (path, position)
// pair within a pull request. At most one thread exists per
// (pull_request, path, position).
type CommentThread struct {
	ID              string    `json:"id"`
	PullRequestID   string    `json:"pull_request_id"`
	ReviewCommentID string    `json:"review_comment_id"`
	Path            string    `json:"path"`
	Position        int       `json:"position"`
	IsResolved      bool      `json:"is_resolved"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCommentThread creates a new CommentThread with a generated UUID
func NewCommentThread(pullRequestID, reviewCommentID, path string, position int) *CommentThread {
	now := time.Now().UTC()
	return &CommentThread{
		ID:              uuid.New().String(),
		PullRequestID:   pullRequestID,
		ReviewCommentID: reviewCommentID,
		Path:            path,
		Position:        position,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
