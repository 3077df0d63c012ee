package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type RepositoryRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepositoryRepository(db *sql.DB) *RepositoryRepository {
	return &RepositoryRepository{db: db}
}

func (r *RepositoryRepository) Create(repo *models.Repository) error {
	query := `
		INSERT INTO repositories (
			id, github_id, owner, name, full_name, language, is_active,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		repo.ID, repo.GithubID, repo.Owner, repo.Name, repo.FullName,
		repo.Language, repo.IsActive, repo.CreatedAt, repo.UpdatedAt,
	)

	return err
}

func (r *RepositoryRepository) GetByID(id string) (*models.Repository, error) {
	query := `SELECT id, github_id, owner, name, full_name, language, is_active, created_at, updated_at
		FROM repositories WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *RepositoryRepository) GetByGithubID(githubID int64) (*models.Repository, error) {
	query := `SELECT id, github_id, owner, name, full_name, language, is_active, created_at, updated_at
		FROM repositories WHERE github_id = ?`
	return r.scanOne(r.db.QueryRow(query, githubID))
}

func (r *RepositoryRepository) Update(repo *models.Repository) error {
	repo.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE repositories SET
			owner = ?, name = ?, full_name = ?, language = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		repo.Owner, repo.Name, repo.FullName, repo.Language, repo.IsActive,
		repo.UpdatedAt, repo.ID,
	)

	return err
}

// Upsert inserts or updates keyed by the immutable GitHub id. The lookup and
// insert run under the repository mutex so racing workers cannot create
// duplicate rows; the UNIQUE index on github_id backs this up.
func (r *RepositoryRepository) Upsert(repo *models.Repository) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByGithubID(repo.GithubID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		repo.ID = existing.ID
		repo.CreatedAt = existing.CreatedAt
		return r.Update(repo)
	}

	return r.Create(repo)
}

func (r *RepositoryRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM repositories`).Scan(&count)
	return count, err
}

func (r *RepositoryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM repositories WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *RepositoryRepository) scanOne(row *sql.Row) (*models.Repository, error) {
	var repo models.Repository
	err := row.Scan(
		&repo.ID, &repo.GithubID, &repo.Owner, &repo.Name, &repo.FullName,
		&repo.Language, &repo.IsActive, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}
