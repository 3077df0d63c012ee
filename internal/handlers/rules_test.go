package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/models"
	"github.com/prlens/prlens/internal/repositories"
	"github.com/prlens/prlens/internal/services"
	"github.com/prlens/prlens/pkg/database"
)

func newRuleRouter(t *testing.T) (*gin.Engine, *repositories.ExtractedRuleRepository, *models.ExtractedRule) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(filepath.Join(t.TempDir(), "prlens_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "../../migrations"))

	repo := models.NewRepository(1001, "acme", "widgets", "acme/widgets")
	require.NoError(t, repositories.NewRepositoryRepository(db).Create(repo))
	pr := models.NewPullRequest(repo.ID, 2001, 7, "Fix validation", models.PullRequestStateClosed)
	require.NoError(t, repositories.NewPullRequestRepository(db).Create(pr))
	comment := models.NewReviewComment(pr.ID, 3001, "You should always validate input.", "main.go", 4)
	require.NoError(t, repositories.NewReviewCommentRepository(db).Create(comment))

	ruleRepo := repositories.NewExtractedRuleRepository(db)
	rule := models.NewExtractedRule(comment.ID, &models.RuleCandidate{
		RuleText:   "Should always validate input.",
		Category:   "security",
		Severity:   models.SeverityHigh,
		Confidence: 0.6,
		Extractor:  models.ExtractorHeuristic,
	})
	require.NoError(t, ruleRepo.Create(rule))

	statsRepo := repositories.NewRuleStatisticsRepository(db)
	exportService := services.NewExportService(ruleRepo, statsRepo)
	handler := NewRuleHandler(ruleRepo, exportService)

	router := gin.New()
	router.GET("/api/v1/rules", handler.List)
	router.PUT("/api/v1/rules/:id/validity", handler.SetValidity)
	router.GET("/api/v1/rules/export", handler.Export)

	return router, ruleRepo, rule
}

func TestListRules(t *testing.T) {
	router, _, _ := newRuleRouter(t)

	t.Run("Unfiltered listing", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/rules", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
	})

	t.Run("Category filter excludes non-matching rules", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/rules?category=testing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Count)
	})

	t.Run("Invalid limit is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/rules?limit=abc", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSetRuleValidity(t *testing.T) {
	router, ruleRepo, rule := newRuleRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/v1/rules/"+rule.ID+"/validity", strings.NewReader(`{"valid": false}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := ruleRepo.GetByID(rule.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsValid)
}

func TestExportRules(t *testing.T) {
	router, _, _ := newRuleRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/rules/export", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}
