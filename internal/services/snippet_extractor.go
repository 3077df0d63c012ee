package services

import (
	"regexp"
	"strconv"
	"strings"
)

// SnippetCandidate is a contiguous group of added lines parsed from a diff hunk
type SnippetCandidate struct {
	Path      string
	LineStart int
	LineEnd   int
	Content   string
	Language  string
}

// hunkHeaderPattern matches a unified-diff hunk header such as
// "@@ -50,6 +52,8 @@" and captures the new-file start line
var hunkHeaderPattern = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// languageByExtension maps file extensions to source languages
var languageByExtension = map[string]string{
	"py":         "python",
	"js":         "javascript",
	"ts":         "typescript",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"cs":         "c#",
	"go":         "go",
	"rs":         "rust",
	"php":        "php",
	"rb":         "ruby",
	"swift":      "swift",
	"kt":         "kotlin",
	"scala":      "scala",
	"html":       "html",
	"css":        "css",
	"scss":       "scss",
	"sass":       "sass",
	"less":       "less",
	"sql":        "sql",
	"sh":         "shell",
	"bash":       "bash",
	"zsh":        "zsh",
	"ps1":        "powershell",
	"lua":        "lua",
	"r":          "r",
	"jl":         "julia",
	"dockerfile": "dockerfile",
	"yaml":       "yaml",
	"yml":        "yaml",
	"json":       "json",
	"xml":        "xml",
	"md":         "markdown",
	"txt":        "plaintext",
}

// SnippetExtractor parses the diff hunk attached to a review comment into
// code-snippet candidates
type SnippetExtractor struct{}

func NewSnippetExtractor() *SnippetExtractor {
	return &SnippetExtractor{}
}

// Extract walks the hunk lines: a header resets the target line counter, each
// added line ("+" but not "++") lands at the current counter and advances it,
// and consecutive added lines are grouped into one snippet. A hunk with no
// added lines yields an empty slice.
func (e *SnippetExtractor) Extract(diffHunk, filePath string) []SnippetCandidate {
	type addedLine struct {
		number  int
		content string
	}

	var added []addedLine
	lineNumber := 0
	inHunk := false

	for _, line := range strings.Split(diffHunk, "\n") {
		if match := hunkHeaderPattern.FindStringSubmatch(line); match != nil {
			lineNumber, _ = strconv.Atoi(match[1])
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "++") {
			added = append(added, addedLine{number: lineNumber, content: line[1:]})
			lineNumber++
		}
	}

	if len(added) == 0 {
		return nil
	}

	language := e.DetectLanguage(filePath)

	var candidates []SnippetCandidate
	groupStart := 0
	for i := 1; i <= len(added); i++ {
		// A gap in line numbers closes the current group
		if i == len(added) || added[i].number != added[i-1].number+1 {
			group := added[groupStart:i]
			lines := make([]string, len(group))
			for j, l := range group {
				lines[j] = l.content
			}
			candidates = append(candidates, SnippetCandidate{
				Path:      filePath,
				LineStart: group[0].number,
				LineEnd:   group[len(group)-1].number,
				Content:   strings.Join(lines, "\n"),
				Language:  language,
			})
			groupStart = i
		}
	}

	return candidates
}

// DetectLanguage derives a source language from the file extension; unknown
// extensions yield an empty string
func (e *SnippetExtractor) DetectLanguage(filePath string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 || idx == len(filePath)-1 {
		return ""
	}
	return languageByExtension[strings.ToLower(filePath[idx+1:])]
}
