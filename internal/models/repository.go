package models

import (
	"time"

	"github.com/google/uuid"
)

// Repository represents a GitHub repository tracked for rule collection
type Repository struct {
	ID        string    `json:"id"`
	GithubID  int64     `json:"github_id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	Language  *string   `json:"language"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRepository creates a new Repository with a generated UUID
func NewRepository(githubID int64, owner, name, fullName string) *Repository {
	now := time.Now().UTC()
	return &Repository{
		ID:        uuid.New().String(),
		GithubID:  githubID,
		Owner:     owner,
		Name:      name,
		FullName:  fullName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
