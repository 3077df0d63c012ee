package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type ReviewCommentRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewReviewCommentRepository(db *sql.DB) *ReviewCommentRepository {
	return &ReviewCommentRepository{db: db}
}

func (r *ReviewCommentRepository) Create(comment *models.ReviewComment) error {
	query := `
		INSERT INTO review_comments (
			id, pull_request_id, github_id, author, body, path, position, line,
			github_created_at, github_updated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		comment.ID, comment.PullRequestID, comment.GithubID, comment.Author,
		comment.Body, comment.Path, comment.Position, comment.Line,
		comment.GithubCreatedAt, comment.GithubUpdatedAt,
		comment.CreatedAt, comment.UpdatedAt,
	)

	return err
}

func (r *ReviewCommentRepository) GetByID(id string) (*models.ReviewComment, error) {
	return r.scanRow(r.db.QueryRow(selectReviewComment+` WHERE id = ?`, id))
}

func (r *ReviewCommentRepository) GetByGithubID(githubID int64) (*models.ReviewComment, error) {
	return r.scanRow(r.db.QueryRow(selectReviewComment+` WHERE github_id = ?`, githubID))
}

func (r *ReviewCommentRepository) Update(comment *models.ReviewComment) error {
	comment.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE review_comments SET
			pull_request_id = ?, author = ?, body = ?, path = ?, position = ?,
			line = ?, github_created_at = ?, github_updated_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		comment.PullRequestID, comment.Author, comment.Body, comment.Path,
		comment.Position, comment.Line, comment.GithubCreatedAt,
		comment.GithubUpdatedAt, comment.UpdatedAt, comment.ID,
	)

	return err
}

func (r *ReviewCommentRepository) Upsert(comment *models.ReviewComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByGithubID(comment.GithubID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		comment.ID = existing.ID
		comment.CreatedAt = existing.CreatedAt
		return r.Update(comment)
	}

	return r.Create(comment)
}

func (r *ReviewCommentRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM review_comments`).Scan(&count)
	return count, err
}

func (r *ReviewCommentRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM review_comments WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectReviewComment = `SELECT id, pull_request_id, github_id, author, body, path, position, line,
	github_created_at, github_updated_at, created_at, updated_at
	FROM review_comments`

func (r *ReviewCommentRepository) scanRow(row *sql.Row) (*models.ReviewComment, error) {
	var comment models.ReviewComment
	err := row.Scan(
		&comment.ID, &comment.PullRequestID, &comment.GithubID, &comment.Author,
		&comment.Body, &comment.Path, &comment.Position, &comment.Line,
		&comment.GithubCreatedAt, &comment.GithubUpdatedAt,
		&comment.CreatedAt, &comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
