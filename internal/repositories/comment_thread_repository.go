package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type CommentThreadRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewCommentThreadRepository(db *sql.DB) *CommentThreadRepository {
	return &CommentThreadRepository{db: db}
}

func (r *CommentThreadRepository) Create(thread *models.CommentThread) error {
	query := `
		INSERT INTO comment_threads (
			id, pull_request_id, review_comment_id, path, position, is_resolved,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		thread.ID, thread.PullRequestID, thread.ReviewCommentID,
		thread.Path, thread.Position, thread.IsResolved,
		thread.CreatedAt, thread.UpdatedAt,
	)

	return err
}

// GetByPullRequestPathPosition looks up a thread by its natural key
func (r *CommentThreadRepository) GetByPullRequestPathPosition(pullRequestID, path string, position int) (*models.CommentThread, error) {
	query := selectCommentThread + ` WHERE pull_request_id = ? AND path = ? AND position = ?`
	return r.scanRow(r.db.QueryRow(query, pullRequestID, path, position))
}

func (r *CommentThreadRepository) Update(thread *models.CommentThread) error {
	thread.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE comment_threads SET
			review_comment_id = ?, is_resolved = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, thread.ReviewCommentID, thread.IsResolved, thread.UpdatedAt, thread.ID)
	return err
}

// Upsert enforces at most one thread per (pull_request, path, position)
func (r *CommentThreadRepository) Upsert(thread *models.CommentThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByPullRequestPathPosition(thread.PullRequestID, thread.Path, thread.Position)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		thread.ID = existing.ID
		thread.CreatedAt = existing.CreatedAt
		return r.Update(thread)
	}

	return r.Create(thread)
}

func (r *CommentThreadRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM comment_threads`).Scan(&count)
	return count, err
}

func (r *CommentThreadRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM comment_threads WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectCommentThread = `SELECT id, pull_request_id, review_comment_id, path, position, is_resolved,
	created_at, updated_at
	FROM comment_threads`

func (r *CommentThreadRepository) scanRow(row *sql.Row) (*models.CommentThread, error) {
	var thread models.CommentThread
	err := row.Scan(
		&thread.ID, &thread.PullRequestID, &thread.ReviewCommentID,
		&thread.Path, &thread.Position, &thread.IsResolved,
		&thread.CreatedAt, &thread.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}
