package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractorHeuristic identifies rules produced by the pattern/keyword tier
const ExtractorHeuristic = "heuristic"

// Rule severities, ordered from most to least severe
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// CategoryGeneral is the default rule category when no keyword matches
const CategoryGeneral = "general"

// ExtractedRule represents a coding-style rule extracted from a review comment
type ExtractedRule struct {
	ID              string    `json:"id"`
	ReviewCommentID string    `json:"review_comment_id"`
	RuleText        string    `json:"rule_text"`
	Category        string    `json:"category"`
	Severity        string    `json:"severity"`
	Confidence      float64   `json:"confidence"`
	Extractor       string    `json:"extractor"`
	ResponseRaw     string    `json:"response_raw"`
	IsValid         bool      `json:"is_valid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewExtractedRule creates a new ExtractedRule with a generated UUID
func NewExtractedRule(reviewCommentID string, candidate *RuleCandidate) *ExtractedRule {
	now := time.Now().UTC()
	return &ExtractedRule{
		ID:              uuid.New().String(),
		ReviewCommentID: reviewCommentID,
		RuleText:        candidate.RuleText,
		Category:        candidate.Category,
		Severity:        candidate.Severity,
		Confidence:      candidate.Confidence,
		Extractor:       candidate.Extractor,
		ResponseRaw:     candidate.ResponseRaw,
		IsValid:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyCandidate overwrites the rule content from a re-extraction
func (r *ExtractedRule) ApplyCandidate(candidate *RuleCandidate) {
	r.RuleText = candidate.RuleText
	r.Category = candidate.Category
	r.Severity = candidate.Severity
	r.Confidence = candidate.Confidence
	r.Extractor = candidate.Extractor
	r.ResponseRaw = candidate.ResponseRaw
	r.UpdatedAt = time.Now().UTC()
}

// MarkValid marks the rule as valid
func (r *ExtractedRule) MarkValid() {
	r.IsValid = true
	r.UpdatedAt = time.Now().UTC()
}

// MarkInvalid marks the rule as invalid
func (r *ExtractedRule) MarkInvalid() {
	r.IsValid = false
	r.UpdatedAt = time.Now().UTC()
}

// RuleCandidate is the output of a rule extraction tier before persistence
type RuleCandidate struct {
	RuleText    string  `json:"rule_text"`
	Category    string  `json:"rule_category"`
	Severity    string  `json:"rule_severity"`
	Confidence  float64 `json:"confidence_score"`
	Extractor   string  `json:"extractor"`
	ResponseRaw string  `json:"response_raw"`
}

// RuleContext carries comment metadata used for categorization and
// confidence scoring
type RuleContext struct {
	FilePath        string
	Author          string
	PRTitle         string
	RepositoryName  string
	Line            *int
	HasCodeSnippets bool
}
