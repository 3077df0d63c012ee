package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeSnippet represents a contiguous group of added lines referenced by a
// review comment's diff hunk
type CodeSnippet struct {
	ID              string    `json:"id"`
	ReviewCommentID string    `json:"review_comment_id"`
	FilePath        string    `json:"file_path"`
	LineStart       int       `json:"line_start"`
	LineEnd         int       `json:"line_end"`
	Content         string    `json:"content"`
	Language        *string   `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCodeSnippet creates a new CodeSnippet with a generated UUID
func NewCodeSnippet(reviewCommentID, filePath string, lineStart, lineEnd int, content string) *CodeSnippet {
	now := time.Now().UTC()
	return &CodeSnippet{
		ID:              uuid.New().String(),
		ReviewCommentID: reviewCommentID,
		FilePath:        filePath,
		LineStart:       lineStart,
		LineEnd:         lineEnd,
		Content:         content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks snippet invariants: non-empty trimmed content and
// positive line bounds with line_start <= line_end
func (s *CodeSnippet) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return errors.New("snippet content is empty")
	}
	if s.LineStart <= 0 || s.LineEnd <= 0 {
		return errors.New("snippet line numbers must be positive")
	}
	if s.LineStart > s.LineEnd {
		return errors.New("snippet line_start is greater than line_end")
	}
	return nil
}
