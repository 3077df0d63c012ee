package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/prlens/prlens/internal/models"
)

// RuleExtractor turns free-text review comments into rule candidates. A nil
// candidate with a nil error means no rule was extractable; that is not a
// failure.
type RuleExtractor interface {
	Extract(ctx context.Context, commentText string, ruleCtx models.RuleContext) (*models.RuleCandidate, error)
}

// rulePatterns are ordered; the first match wins. Each pattern captures
// through the end of the sentence.
var rulePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bshould\s+(?:always|never)\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bavoid\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\buse\s+\S+\s+instead[^.!?\n]*`),
	regexp.MustCompile(`(?i)\bprefer\s+\S+\s+over[^.!?\n]*`),
	regexp.MustCompile(`(?i)\bfollow\s+\S+\s+conventions?[^.!?\n]*`),
	regexp.MustCompile(`(?i)\bensure\s+\S+\s+is\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bmake\s+sure\s+to\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bremember\s+to\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bdo\s+not\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\balways\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bnever\s+[^.!?\n]+`),
}

// imperativeVerbs mark a sentence as an instruction when it opens with one
var imperativeVerbs = map[string]bool{
	"use": true, "avoid": true, "follow": true, "ensure": true, "make": true,
	"remember": true, "do": true, "always": true, "never": true, "prefer": true,
	"implement": true, "add": true, "remove": true, "change": true, "update": true,
	"fix": true, "refactor": true, "optimize": true, "simplify": true,
	"standardize": true, "document": true, "test": true, "validate": true,
}

// keywordTable is an ordered lookup so categorization stays deterministic
type keywordTable struct {
	name     string
	keywords []string
}

var categoryTables = []keywordTable{
	{"naming", []string{"name", "naming", "variable", "function", "class", "method", "identifier"}},
	{"style", []string{"style", "format", "indent", "spacing", "layout", "appearance"}},
	{"performance", []string{"performance", "efficient", "optimize", "speed", "memory"}},
	{"security", []string{"security", "safe", "vulnerable", "attack", "protect"}},
	{"best_practices", []string{"best", "practice", "convention", "standard", "guideline"}},
	{"error_handling", []string{"error", "exception", "handle", "catch", "throw"}},
	{"testing", []string{"test", "testing", "unit", "integration", "coverage"}},
	{"documentation", []string{"document", "comment", "doc", "readme", "description"}},
	{"architecture", []string{"architecture", "design", "structure", "pattern", "module"}},
	{"readability", []string{"readable", "clear", "understand", "simple", "clean"}},
}

var severityTables = []keywordTable{
	{models.SeverityCritical, []string{"critical", "must", "required", "mandatory", "essential"}},
	{models.SeverityHigh, []string{"high", "important", "serious", "major"}},
	{models.SeverityMedium, []string{"medium", "moderate", "should", "recommended"}},
	{models.SeverityLow, []string{"low", "minor", "optional", "suggestion"}},
	{models.SeverityInfo, []string{"info", "note", "reminder", "fyi"}},
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// HeuristicExtractor is the pattern/keyword rule extraction tier. It is fully
// deterministic: identical input text always yields identical rule text,
// category, and severity.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Extract(_ context.Context, commentText string, ruleCtx models.RuleContext) (*models.RuleCandidate, error) {
	ruleText := extractRuleText(commentText)
	if ruleText == "" {
		return nil, nil
	}

	raw, _ := json.Marshal(map[string]string{"rule": ruleText})

	return &models.RuleCandidate{
		RuleText:    ruleText,
		Category:    categorizeRule(ruleText),
		Severity:    assessSeverity(ruleText),
		Confidence:  calculateConfidence(ruleText, ruleCtx),
		Extractor:   models.ExtractorHeuristic,
		ResponseRaw: string(raw),
	}, nil
}

// extractRuleText applies the ordered pattern list, then falls back to the
// first imperative sentence. An empty result means no rule.
func extractRuleText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	for _, pattern := range rulePatterns {
		if match := pattern.FindString(text); match != "" {
			return finishRuleText(match)
		}
	}

	for _, sentence := range sentenceSplitter.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= 10 {
			continue
		}
		firstWord := strings.ToLower(strings.Fields(sentence)[0])
		if imperativeVerbs[firstWord] {
			return finishRuleText(sentence)
		}
	}

	return ""
}

// finishRuleText capitalizes the first letter and period-terminates the rule
func finishRuleText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ToUpper(text[:1]) + text[1:]
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}

// categorizeRule runs the keyword-set membership test; the first matching
// category wins
func categorizeRule(ruleText string) string {
	lower := strings.ToLower(ruleText)
	for _, table := range categoryTables {
		for _, keyword := range table.keywords {
			if strings.Contains(lower, keyword) {
				return table.name
			}
		}
	}
	return models.CategoryGeneral
}

// assessSeverity is keyword-driven with a length-based fallback
func assessSeverity(ruleText string) string {
	lower := strings.ToLower(ruleText)
	for _, table := range severityTables {
		for _, keyword := range table.keywords {
			if strings.Contains(lower, keyword) {
				return table.name
			}
		}
	}

	switch {
	case len(ruleText) > 100:
		return models.SeverityMedium
	case len(ruleText) > 50:
		return models.SeverityLow
	default:
		return models.SeverityInfo
	}
}

// calculateConfidence starts at 0.5 and adds fixed bonuses, capped at 1.0
func calculateConfidence(ruleText string, ruleCtx models.RuleContext) float64 {
	confidence := 0.5

	if len(ruleText) > 50 {
		confidence += 0.1
	}
	if ruleCtx.HasCodeSnippets {
		confidence += 0.1
	}
	if ruleCtx.FilePath != "" {
		confidence += 0.05
	}
	if ruleCtx.Author != "" {
		confidence += 0.05
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// normalizeCategory maps a free-form category label onto the fixed vocabulary
func normalizeCategory(category string) string {
	lower := strings.ToLower(strings.TrimSpace(category))
	for _, table := range categoryTables {
		if lower == table.name {
			return table.name
		}
		for _, keyword := range table.keywords {
			if strings.Contains(lower, keyword) {
				return table.name
			}
		}
	}
	return models.CategoryGeneral
}

// normalizeSeverity maps a free-form severity label onto the fixed vocabulary
func normalizeSeverity(severity string) string {
	lower := strings.ToLower(strings.TrimSpace(severity))
	for _, table := range severityTables {
		for _, keyword := range table.keywords {
			if strings.Contains(lower, keyword) {
				return table.name
			}
		}
	}
	return models.SeverityInfo
}
