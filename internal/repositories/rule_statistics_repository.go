package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

type RuleStatisticsRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRuleStatisticsRepository(db *sql.DB) *RuleStatisticsRepository {
	return &RuleStatisticsRepository{db: db}
}

func (r *RuleStatisticsRepository) Create(stats *models.RuleStatistics) error {
	query := `
		INSERT INTO rule_statistics (
			id, rule_id, repository_id, occurrence_count, first_seen, last_seen,
			avg_confidence, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		stats.ID, stats.RuleID, stats.RepositoryID, stats.OccurrenceCount,
		stats.FirstSeen, stats.LastSeen, stats.AvgConfidence,
		stats.CreatedAt, stats.UpdatedAt,
	)

	return err
}

// GetByRuleAndRepository looks up statistics by their natural key
func (r *RuleStatisticsRepository) GetByRuleAndRepository(ruleID, repositoryID string) (*models.RuleStatistics, error) {
	query := selectRuleStatistics + ` WHERE rule_id = ? AND repository_id = ?`
	return r.scanRow(r.db.QueryRow(query, ruleID, repositoryID))
}

func (r *RuleStatisticsRepository) Update(stats *models.RuleStatistics) error {
	stats.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rule_statistics SET
			occurrence_count = ?, first_seen = ?, last_seen = ?, avg_confidence = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		stats.OccurrenceCount, stats.FirstSeen, stats.LastSeen,
		stats.AvgConfidence, stats.UpdatedAt, stats.ID,
	)

	return err
}

// RecordOccurrence creates statistics on the first occurrence of a
// (rule, repository) pair and increments them afterwards; the pair is never
// recreated.
func (r *RuleStatisticsRepository) RecordOccurrence(ruleID, repositoryID string, confidence float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByRuleAndRepository(ruleID, repositoryID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		existing.IncrementOccurrence(confidence)
		return r.Update(existing)
	}

	return r.Create(models.NewRuleStatistics(ruleID, repositoryID, confidence))
}

func (r *RuleStatisticsRepository) ListByRepository(repositoryID string) ([]*models.RuleStatistics, error) {
	rows, err := r.db.Query(selectRuleStatistics+` WHERE repository_id = ? ORDER BY occurrence_count DESC`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *RuleStatisticsRepository) ListAll() ([]*models.RuleStatistics, error) {
	rows, err := r.db.Query(selectRuleStatistics + ` ORDER BY occurrence_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *RuleStatisticsRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM rule_statistics`).Scan(&count)
	return count, err
}

const selectRuleStatistics = `SELECT id, rule_id, repository_id, occurrence_count, first_seen, last_seen,
	avg_confidence, created_at, updated_at
	FROM rule_statistics`

func (r *RuleStatisticsRepository) scanRow(row *sql.Row) (*models.RuleStatistics, error) {
	var stats models.RuleStatistics
	err := row.Scan(
		&stats.ID, &stats.RuleID, &stats.RepositoryID, &stats.OccurrenceCount,
		&stats.FirstSeen, &stats.LastSeen, &stats.AvgConfidence,
		&stats.CreatedAt, &stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *RuleStatisticsRepository) collect(rows *sql.Rows) ([]*models.RuleStatistics, error) {
	var result []*models.RuleStatistics
	for rows.Next() {
		var stats models.RuleStatistics
		err := rows.Scan(
			&stats.ID, &stats.RuleID, &stats.RepositoryID, &stats.OccurrenceCount,
			&stats.FirstSeen, &stats.LastSeen, &stats.AvgConfidence,
			&stats.CreatedAt, &stats.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, &stats)
	}
	return result, rows.Err()
}
