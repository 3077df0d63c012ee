package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
)

// RuleFilter narrows rule listings; zero values mean "any"
type RuleFilter struct {
	Category string
	Severity string
	Valid    *bool
	Limit    int
}

type ExtractedRuleRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewExtractedRuleRepository(db *sql.DB) *ExtractedRuleRepository {
	return &ExtractedRuleRepository{db: db}
}

func (r *ExtractedRuleRepository) Create(rule *models.ExtractedRule) error {
	query := `
		INSERT INTO extracted_rules (
			id, review_comment_id, rule_text, category, severity, confidence,
			extractor, response_raw, is_valid, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		rule.ID, rule.ReviewCommentID, rule.RuleText, rule.Category,
		rule.Severity, rule.Confidence, rule.Extractor, rule.ResponseRaw,
		rule.IsValid, rule.CreatedAt, rule.UpdatedAt,
	)

	return err
}

func (r *ExtractedRuleRepository) GetByID(id string) (*models.ExtractedRule, error) {
	return r.scanRow(r.db.QueryRow(selectExtractedRule+` WHERE id = ?`, id))
}

// GetByCommentAndExtractor finds the rule a given extractor produced for one
// comment; re-extraction updates this row instead of inserting another.
func (r *ExtractedRuleRepository) GetByCommentAndExtractor(reviewCommentID, extractor string) (*models.ExtractedRule, error) {
	query := selectExtractedRule + ` WHERE review_comment_id = ? AND extractor = ?`
	return r.scanRow(r.db.QueryRow(query, reviewCommentID, extractor))
}

func (r *ExtractedRuleRepository) Update(rule *models.ExtractedRule) error {
	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE extracted_rules SET
			rule_text = ?, category = ?, severity = ?, confidence = ?,
			extractor = ?, response_raw = ?, is_valid = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		rule.RuleText, rule.Category, rule.Severity, rule.Confidence,
		rule.Extractor, rule.ResponseRaw, rule.IsValid, rule.UpdatedAt, rule.ID,
	)

	return err
}

func (r *ExtractedRuleRepository) Upsert(rule *models.ExtractedRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByCommentAndExtractor(rule.ReviewCommentID, rule.Extractor)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if existing != nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		return r.Update(rule)
	}

	return r.Create(rule)
}

func (r *ExtractedRuleRepository) List(filter RuleFilter) ([]*models.ExtractedRule, error) {
	query := selectExtractedRule + ` WHERE 1=1`
	args := []interface{}{}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, filter.Severity)
	}
	if filter.Valid != nil {
		query += ` AND is_valid = ?`
		args = append(args, *filter.Valid)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.ExtractedRule
	for rows.Next() {
		var rule models.ExtractedRule
		err := rows.Scan(
			&rule.ID, &rule.ReviewCommentID, &rule.RuleText, &rule.Category,
			&rule.Severity, &rule.Confidence, &rule.Extractor, &rule.ResponseRaw,
			&rule.IsValid, &rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

func (r *ExtractedRuleRepository) SetValidity(id string, valid bool) error {
	rule, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if valid {
		rule.MarkValid()
	} else {
		rule.MarkInvalid()
	}
	return r.Update(rule)
}

func (r *ExtractedRuleRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM extracted_rules`).Scan(&count)
	return count, err
}

const selectExtractedRule = `SELECT id, review_comment_id, rule_text, category, severity, confidence,
	extractor, response_raw, is_valid, created_at, updated_at
	FROM extracted_rules`

func (r *ExtractedRuleRepository) scanRow(row *sql.Row) (*models.ExtractedRule, error) {
	var rule models.ExtractedRule
	err := row.Scan(
		&rule.ID, &rule.ReviewCommentID, &rule.RuleText, &rule.Category,
		&rule.Severity, &rule.Confidence, &rule.Extractor, &rule.ResponseRaw,
		&rule.IsValid, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
