package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/models"
)

func TestHeuristicExtract(t *testing.T) {
	extractor := NewHeuristicExtractor()
	ctx := context.Background()

	t.Run("Pattern match captures the full sentence", func(t *testing.T) {
		ruleCtx := models.RuleContext{FilePath: "main.go", Author: "reviewer"}

		candidate, err := extractor.Extract(ctx, "You should always validate user input. Thanks!", ruleCtx)

		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, "Should always validate user input.", candidate.RuleText)
		assert.Equal(t, models.CategoryGeneral, candidate.Category)
		assert.Equal(t, models.SeverityMedium, candidate.Severity)
		assert.InDelta(t, 0.6, candidate.Confidence, 0.001)
		assert.Equal(t, models.ExtractorHeuristic, candidate.Extractor)
	})

	t.Run("Avoid pattern", func(t *testing.T) {
		candidate, err := extractor.Extract(ctx, "Please avoid using global variables here!", models.RuleContext{})

		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, "Avoid using global variables here.", candidate.RuleText)
		assert.Equal(t, "naming", candidate.Category)
	})

	t.Run("Imperative sentence fallback", func(t *testing.T) {
		candidate, err := extractor.Extract(ctx, "Ensure the cache gets invalidated properly.", models.RuleContext{})

		require.NoError(t, err)
		require.NotNil(t, candidate)
		assert.Equal(t, "Ensure the cache gets invalidated properly.", candidate.RuleText)
	})

	t.Run("No rule in plain chatter", func(t *testing.T) {
		candidate, err := extractor.Extract(ctx, "Looks good to me!", models.RuleContext{})

		require.NoError(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Empty comment", func(t *testing.T) {
		candidate, err := extractor.Extract(ctx, "   ", models.RuleContext{})

		require.NoError(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("Identical input yields identical output", func(t *testing.T) {
		text := "You must never log credentials. Use the test helpers instead."
		ruleCtx := models.RuleContext{FilePath: "auth.go", Author: "reviewer", HasCodeSnippets: true}

		first, err := extractor.Extract(ctx, text, ruleCtx)
		require.NoError(t, err)
		second, err := extractor.Extract(ctx, text, ruleCtx)
		require.NoError(t, err)

		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, first.RuleText, second.RuleText)
		assert.Equal(t, first.Category, second.Category)
		assert.Equal(t, first.Severity, second.Severity)
		assert.Equal(t, first.Confidence, second.Confidence)
	})
}

func TestCategorizeRule(t *testing.T) {
	testCases := []struct {
		name     string
		ruleText string
		expected string
	}{
		{"Naming", "Use descriptive variable names.", "naming"},
		{"Error handling", "Always handle the error returned here.", "error_handling"},
		{"Testing", "Add a unit test covering this branch.", "testing"},
		{"Security", "Never store the token in an unsafe place.", "security"},
		{"No keyword", "Keep this shorter.", models.CategoryGeneral},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, categorizeRule(tc.ruleText))
		})
	}
}

func TestAssessSeverity(t *testing.T) {
	testCases := []struct {
		name     string
		ruleText string
		expected string
	}{
		{"Must is critical", "You must close the connection.", models.SeverityCritical},
		{"Important is high", "This part is important to get right.", models.SeverityHigh},
		{"Should is medium", "Functions should stay small.", models.SeverityMedium},
		{"Short text falls back to info", "Keep it tidy.", models.SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, assessSeverity(tc.ruleText))
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	t.Run("Base score without context", func(t *testing.T) {
		assert.InDelta(t, 0.5, calculateConfidence("Short rule.", models.RuleContext{}), 0.001)
	})

	t.Run("All bonuses stay within bounds", func(t *testing.T) {
		ruleCtx := models.RuleContext{
			FilePath:        "internal/server/handler.go",
			Author:          "reviewer",
			HasCodeSnippets: true,
		}
		longRule := "Always wrap downstream errors with enough context to identify the failing call site."

		confidence := calculateConfidence(longRule, ruleCtx)

		assert.InDelta(t, 0.8, confidence, 0.001)
		assert.LessOrEqual(t, confidence, 1.0)
	})
}

func TestNormalizeVocabulary(t *testing.T) {
	assert.Equal(t, "error_handling", normalizeCategory("Error Handling"))
	assert.Equal(t, "testing", normalizeCategory("unit-testing"))
	assert.Equal(t, models.CategoryGeneral, normalizeCategory("miscellaneous"))

	assert.Equal(t, models.SeverityCritical, normalizeSeverity("CRITICAL"))
	assert.Equal(t, models.SeverityHigh, normalizeSeverity("major"))
	assert.Equal(t, models.SeverityInfo, normalizeSeverity("unknown"))
}
