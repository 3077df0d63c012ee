package repositories

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/models"
	"github.com/prlens/prlens/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "prlens_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, "../../migrations"))
	return db
}

func TestRepositoryUpsertIsIdempotent(t *testing.T) {
	repo := NewRepositoryRepository(newTestDB(t))

	first := models.NewRepository(1001, "acme", "widgets", "acme/widgets")
	require.NoError(t, repo.Upsert(first))

	// Same github_id arrives again with updated metadata
	language := "Go"
	second := models.NewRepository(1001, "acme", "widgets", "acme/widgets")
	second.Language = &language
	require.NoError(t, repo.Upsert(second))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The surviving row keeps the original identity
	stored, err := repo.GetByGithubID(1001)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	require.NotNil(t, stored.Language)
	assert.Equal(t, "Go", *stored.Language)
	assert.Equal(t, first.CreatedAt.Unix(), stored.CreatedAt.Unix())
}

func TestPullRequestUpsertKeepsOneRowPerGithubID(t *testing.T) {
	db := newTestDB(t)
	repoRepo := NewRepositoryRepository(db)
	pullRepo := NewPullRequestRepository(db)

	repo := models.NewRepository(1001, "acme", "widgets", "acme/widgets")
	require.NoError(t, repoRepo.Create(repo))

	pr := models.NewPullRequest(repo.ID, 2001, 7, "Fix validation", models.PullRequestStateOpen)
	require.NoError(t, pullRepo.Upsert(pr))

	updated := models.NewPullRequest(repo.ID, 2001, 7, "Fix validation", models.PullRequestStateClosed)
	require.NoError(t, pullRepo.Upsert(updated))

	count, err := pullRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := pullRepo.GetByGithubID(2001)
	require.NoError(t, err)
	assert.Equal(t, pr.ID, stored.ID)
	assert.Equal(t, models.PullRequestStateClosed, stored.State)
}

func TestGetByGithubIDMissingRow(t *testing.T) {
	repo := NewRepositoryRepository(newTestDB(t))

	_, err := repo.GetByGithubID(424242)

	assert.Equal(t, sql.ErrNoRows, err)
}
