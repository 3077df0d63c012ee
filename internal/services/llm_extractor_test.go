package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/models"
)

func TestLLMExtractorFallsBackWithoutClient(t *testing.T) {
	extractor := NewLLMExtractor("", "gpt-4")

	candidate, err := extractor.Extract(context.Background(), "You should always validate user input.", models.RuleContext{})

	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, models.ExtractorHeuristic, candidate.Extractor)
	assert.Equal(t, "Should always validate user input.", candidate.RuleText)
}

func TestParseResponse(t *testing.T) {
	extractor := NewLLMExtractor("", "gpt-4")
	ruleCtx := models.RuleContext{FilePath: "main.go"}

	t.Run("Complete response", func(t *testing.T) {
		raw := `{
			"rule_text": "Validate all user input before processing",
			"rule_category": "security",
			"rule_severity": "high",
			"explanation": "Unvalidated input is an injection vector",
			"examples": ["validate(input)"],
			"related_concepts": ["input sanitization"]
		}`

		candidate, err := extractor.parseResponse(raw, ruleCtx)

		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, "Validate all user input before processing.", candidate.RuleText)
		assert.Equal(t, "security", candidate.Category)
		assert.Equal(t, models.SeverityHigh, candidate.Severity)
		assert.Equal(t, "gpt-4", candidate.Extractor)
		assert.Equal(t, raw, candidate.ResponseRaw)
	})

	t.Run("No rule signal", func(t *testing.T) {
		candidate, err := extractor.parseResponse(`{"rule_text": null}`, ruleCtx)

		require.NoError(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Missing category is rejected", func(t *testing.T) {
		raw := `{"rule_text": "Do the thing", "rule_severity": "low"}`

		candidate, err := extractor.parseResponse(raw, ruleCtx)

		assert.Error(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Missing severity is rejected", func(t *testing.T) {
		raw := `{"rule_text": "Do the thing", "rule_category": "style"}`

		candidate, err := extractor.parseResponse(raw, ruleCtx)

		assert.Error(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Invalid JSON is rejected", func(t *testing.T) {
		candidate, err := extractor.parseResponse("not json", ruleCtx)

		assert.Error(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Free-form labels are normalized", func(t *testing.T) {
		raw := `{"rule_text": "Handle errors explicitly", "rule_category": "Error Handling", "rule_severity": "Major"}`

		candidate, err := extractor.parseResponse(raw, ruleCtx)

		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, "error_handling", candidate.Category)
		assert.Equal(t, models.SeverityHigh, candidate.Severity)
	})
}

func TestScoreResponse(t *testing.T) {
	extractor := NewLLMExtractor("", "gpt-4")

	t.Run("Minimal response scores base confidence", func(t *testing.T) {
		response := &llmRuleResponse{RuleText: "Short"}

		confidence := extractor.scoreResponse(response, "Short.", models.RuleContext{})

		assert.InDelta(t, 0.5, confidence, 0.001)
	})

	t.Run("Complete response earns every bonus", func(t *testing.T) {
		response := &llmRuleResponse{
			RuleText:        "rule",
			Explanation:     "why",
			Examples:        []string{"example"},
			RelatedConcepts: []string{"concept"},
		}
		longRule := "Always validate and sanitize every piece of user supplied input."

		confidence := extractor.scoreResponse(response, longRule, models.RuleContext{FilePath: "main.go"})

		assert.InDelta(t, 0.75, confidence, 0.001)
		assert.LessOrEqual(t, confidence, 1.0)
	})
}
