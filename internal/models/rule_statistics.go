package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleStatistics tracks occurrence counts and running average confidence for
// a rule within one repository. A (rule, repository) pair is created once and
// incrementally updated afterwards.
type RuleStatistics struct {
	ID              string    `json:"id"`
	RuleID          string    `json:"rule_id"`
	RepositoryID    string    `json:"repository_id"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	AvgConfidence   float64   `json:"avg_confidence"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewRuleStatistics creates statistics for the first occurrence of a rule
func NewRuleStatistics(ruleID, repositoryID string, confidence float64) *RuleStatistics {
	now := time.Now().UTC()
	return &RuleStatistics{
		ID:              uuid.New().String(),
		RuleID:          ruleID,
		RepositoryID:    repositoryID,
		OccurrenceCount: 1,
		FirstSeen:       now,
		LastSeen:        now,
		AvgConfidence:   confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IncrementOccurrence records another occurrence and recomputes the running
// average confidence as (old_avg * (n-1) + new_score) / n
func (s *RuleStatistics) IncrementOccurrence(confidence float64) {
	now := time.Now().UTC()
	s.OccurrenceCount++
	s.AvgConfidence = (s.AvgConfidence*float64(s.OccurrenceCount-1) + confidence) / float64(s.OccurrenceCount)
	s.LastSeen = now
	s.UpdatedAt = now
}
