package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSnippets(t *testing.T) {
	extractor := NewSnippetExtractor()

	t.Run("Groups consecutive added lines", func(t *testing.T) {
		diffHunk := "@@ -8,4 +10,6 @@ func main() {\n" +
			" unchanged\n" +
			"+first added\n" +
			"+second added\n" +
			" unchanged\n" +
			"+third added\n"

		candidates := extractor.Extract(diffHunk, "main.go")

		assert.Len(t, candidates, 2)
		assert.Equal(t, 10, candidates[0].LineStart)
		assert.Equal(t, 11, candidates[0].LineEnd)
		assert.Equal(t, "first added\nsecond added", candidates[0].Content)
		assert.Equal(t, 12, candidates[1].LineStart)
		assert.Equal(t, 12, candidates[1].LineEnd)
		assert.Equal(t, "third added", candidates[1].Content)
		assert.Equal(t, "go", candidates[0].Language)
	})

	t.Run("Counter only advances on added lines", func(t *testing.T) {
		diffHunk := "@@ -50,6 +52,8 @@\n" +
			" context\n" +
			"-removed line\n" +
			" context\n" +
			"+added line\n"

		candidates := extractor.Extract(diffHunk, "service.py")

		assert.Len(t, candidates, 1)
		assert.Equal(t, 52, candidates[0].LineStart)
		assert.Equal(t, 52, candidates[0].LineEnd)
		assert.Equal(t, "added line", candidates[0].Content)
	})

	t.Run("Hunk without added lines yields nothing", func(t *testing.T) {
		diffHunk := "@@ -1,3 +1,3 @@\n unchanged\n-old\n unchanged\n"

		candidates := extractor.Extract(diffHunk, "main.go")

		assert.Empty(t, candidates)
	})

	t.Run("File header lines are not added lines", func(t *testing.T) {
		diffHunk := "+++ b/main.go\n@@ -1,1 +1,2 @@\n+real addition\n"

		candidates := extractor.Extract(diffHunk, "main.go")

		assert.Len(t, candidates, 1)
		assert.Equal(t, "real addition", candidates[0].Content)
	})

	t.Run("Header resets the counter for each hunk", func(t *testing.T) {
		diffHunk := "@@ -1,2 +1,3 @@\n" +
			"+early\n" +
			"@@ -90,2 +100,3 @@\n" +
			"+late\n"

		candidates := extractor.Extract(diffHunk, "main.go")

		assert.Len(t, candidates, 2)
		assert.Equal(t, 1, candidates[0].LineStart)
		assert.Equal(t, 100, candidates[1].LineStart)
	})

	t.Run("Empty diff hunk", func(t *testing.T) {
		assert.Empty(t, extractor.Extract("", "main.go"))
	})
}

func TestDetectLanguage(t *testing.T) {
	extractor := NewSnippetExtractor()

	testCases := []struct {
		name     string
		filePath string
		expected string
	}{
		{"Python file", "src/services/analyzer.py", "python"},
		{"Go file", "cmd/server/main.go", "go"},
		{"TypeScript file", "web/app.ts", "typescript"},
		{"Uppercase extension", "README.MD", "markdown"},
		{"YAML variants", "deploy.yml", "yaml"},
		{"Unknown extension", "binary.xyz", ""},
		{"No extension", "Makefile", ""},
		{"Trailing dot", "strange.", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractor.DetectLanguage(tc.filePath))
		})
	}
}
