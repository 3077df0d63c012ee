package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type CodeSnippetRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewCodeSnippetRepository(db *sql.DB) *CodeSnippetRepository {
	return &CodeSnippetRepository{db: db}
}

func (r *CodeSnippetRepository) Create(snippet *models.CodeSnippet) error {
	query := `
		INSERT INTO code_snippets (
			id, review_comment_id, file_path, line_start, line_end, content,
			language, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		snippet.ID, snippet.ReviewCommentID, snippet.FilePath,
		snippet.LineStart, snippet.LineEnd, snippet.Content,
		snippet.Language, snippet.CreatedAt, snippet.UpdatedAt,
	)

	return err
}

func (r *CodeSnippetRepository) GetByCommentAndRange(reviewCommentID, filePath string, lineStart, lineEnd int) (*models.CodeSnippet, error) {
	query := selectCodeSnippet + ` WHERE review_comment_id = ? AND file_path = ? AND line_start = ? AND line_end = ?`
	return r.scanRow(r.db.QueryRow(query, reviewCommentID, filePath, lineStart, lineEnd))
}

func (r *CodeSnippetRepository) GetByReviewCommentID(reviewCommentID string) ([]*models.CodeSnippet, error) {
	rows, err := r.db.Query(selectCodeSnippet+` WHERE review_comment_id = ? ORDER BY line_start`, reviewCommentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []*models.CodeSnippet
	for rows.Next() {
		var s models.CodeSnippet
		err := rows.Scan(
			&s.ID, &s.ReviewCommentID, &s.FilePath, &s.LineStart, &s.LineEnd,
			&s.Content, &s.Language, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, &s)
	}

	return snippets, rows.Err()
}

func (r *CodeSnippetRepository) Update(snippet *models.CodeSnippet) error {
	snippet.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE code_snippets SET
			content = ?, language = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, snippet.Content, snippet.Language, snippet.UpdatedAt, snippet.ID)
	return err
}

// Upsert is keyed by (review_comment_id, file_path, line_start, line_end),
// the snippet's natural identity within a comment's diff hunk
func (r *CodeSnippetRepository) Upsert(snippet *models.CodeSnippet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByCommentAndRange(snippet.ReviewCommentID, snippet.FilePath, snippet.LineStart, snippet.LineEnd)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		snippet.ID = existing.ID
		snippet.CreatedAt = existing.CreatedAt
		return r.Update(snippet)
	}

	return r.Create(snippet)
}

func (r *CodeSnippetRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM code_snippets`).Scan(&count)
	return count, err
}

func (r *CodeSnippetRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM code_snippets WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectCodeSnippet = `SELECT id, review_comment_id, file_path, line_start, line_end, content,
	language, created_at, updated_at
	FROM code_snippets`

func (r *CodeSnippetRepository) scanRow(row *sql.Row) (*models.CodeSnippet, error) {
	var s models.CodeSnippet
	err := row.Scan(
		&s.ID, &s.ReviewCommentID, &s.FilePath, &s.LineStart, &s.LineEnd,
		&s.Content, &s.Language, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
