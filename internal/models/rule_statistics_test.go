package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementOccurrenceRunningAverage(t *testing.T) {
	stats := NewRuleStatistics("rule-id", "repo-id", 0.6)
	assert.Equal(t, 1, stats.OccurrenceCount)
	assert.InDelta(t, 0.6, stats.AvgConfidence, 0.001)

	stats.IncrementOccurrence(0.8)
	assert.Equal(t, 2, stats.OccurrenceCount)
	assert.InDelta(t, 0.7, stats.AvgConfidence, 0.001)

	stats.IncrementOccurrence(0.7)
	assert.Equal(t, 3, stats.OccurrenceCount)
	assert.InDelta(t, 0.7, stats.AvgConfidence, 0.001)

	assert.False(t, stats.LastSeen.Before(stats.FirstSeen))
}

func TestCodeSnippetValidate(t *testing.T) {
	testCases := []struct {
		name      string
		content   string
		lineStart int
		lineEnd   int
		wantErr   bool
	}{
		{"Valid snippet", "x := 1", 10, 12, false},
		{"Whitespace-only content", "   \n\t", 10, 12, true},
		{"Zero line start", "x := 1", 0, 5, true},
		{"Start after end", "x := 1", 12, 10, true},
		{"Single line", "x := 1", 7, 7, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snippet := NewCodeSnippet("comment-id", "main.go", tc.lineStart, tc.lineEnd, tc.content)
			err := snippet.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
