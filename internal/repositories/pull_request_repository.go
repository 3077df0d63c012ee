package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type PullRequestRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewPullRequestRepository(db *sql.DB) *PullRequestRepository {
	return &PullRequestRepository{db: db}
}

func (r *PullRequestRepository) Create(pr *models.PullRequest) error {
	query := `
		INSERT INTO pull_requests (
			id, repository_id, github_id, number, title, state, author,
			merged_at, closed_at, github_created_at, github_updated_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		pr.ID, pr.RepositoryID, pr.GithubID, pr.Number, pr.Title, pr.State,
		pr.Author, pr.MergedAt, pr.ClosedAt, pr.GithubCreatedAt,
		pr.GithubUpdatedAt, pr.CreatedAt, pr.UpdatedAt,
	)

	return err
}

func (r *PullRequestRepository) GetByID(id string) (*models.PullRequest, error) {
	return r.scanOne(r.db.QueryRow(selectPullRequest+` WHERE id = ?`, id))
}

func (r *PullRequestRepository) GetByGithubID(githubID int64) (*models.PullRequest, error) {
	return r.scanOne(r.db.QueryRow(selectPullRequest+` WHERE github_id = ?`, githubID))
}

func (r *PullRequestRepository) GetByRepositoryID(repositoryID string) ([]*models.PullRequest, error) {
	rows, err := r.db.Query(selectPullRequest+` WHERE repository_id = ? ORDER BY number DESC`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pullRequests []*models.PullRequest
	for rows.Next() {
		pr, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		pullRequests = append(pullRequests, pr)
	}

	return pullRequests, rows.Err()
}

func (r *PullRequestRepository) Update(pr *models.PullRequest) error {
	pr.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE pull_requests SET
			repository_id = ?, number = ?, title = ?, state = ?, author = ?,
			merged_at = ?, closed_at = ?, github_created_at = ?, github_updated_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		pr.RepositoryID, pr.Number, pr.Title, pr.State, pr.Author,
		pr.MergedAt, pr.ClosedAt, pr.GithubCreatedAt, pr.GithubUpdatedAt,
		pr.UpdatedAt, pr.ID,
	)

	return err
}

func (r *PullRequestRepository) Upsert(pr *models.PullRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByGithubID(pr.GithubID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		pr.ID = existing.ID
		pr.CreatedAt = existing.CreatedAt
		return r.Update(pr)
	}

	return r.Create(pr)
}

func (r *PullRequestRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM pull_requests`).Scan(&count)
	return count, err
}

func (r *PullRequestRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM pull_requests WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectPullRequest = `SELECT id, repository_id, github_id, number, title, state, author,
	merged_at, closed_at, github_created_at, github_updated_at, created_at, updated_at
	FROM pull_requests`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PullRequestRepository) scanOne(row *sql.Row) (*models.PullRequest, error) {
	return r.scanRow(row)
}

func (r *PullRequestRepository) scanRow(row rowScanner) (*models.PullRequest, error) {
	var pr models.PullRequest
	err := row.Scan(
		&pr.ID, &pr.RepositoryID, &pr.GithubID, &pr.Number, &pr.Title, &pr.State,
		&pr.Author, &pr.MergedAt, &pr.ClosedAt, &pr.GithubCreatedAt,
		&pr.GithubUpdatedAt, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}
