package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prlens/prlens/internal/models"
	"github.com/prlens/prlens/pkg/logger"
)

const llmSystemPrompt = "You are an expert software engineer specializing in code quality and best practices."

const llmMaxRetries = 3

// llmRuleResponse is the JSON contract of the rule-extraction backend
type llmRuleResponse struct {
	RuleText        string   `json:"rule_text"`
	RuleCategory    string   `json:"rule_category"`
	RuleSeverity    string   `json:"rule_severity"`
	Explanation     string   `json:"explanation"`
	Examples        []string `json:"examples"`
	RelatedConcepts []string `json:"related_concepts"`
}

// LLMExtractor asks a language model for a structured rule candidate and
// falls back to the heuristic tier on any call or validation failure. The
// fallback is silent: no error from the backend ever propagates to callers.
type LLMExtractor struct {
	client    *openai.Client
	model     string
	fallback  *HeuristicExtractor
	retryWait time.Duration
}

// NewLLMExtractor creates the LLM tier. With an empty API key the extractor
// degrades to pure heuristic extraction.
func NewLLMExtractor(apiKey, model string) *LLMExtractor {
	e := &LLMExtractor{
		model:     model,
		fallback:  NewHeuristicExtractor(),
		retryWait: time.Second,
	}
	if apiKey != "" {
		e.client = openai.NewClient(apiKey)
	} else {
		logger.Warnf("No OpenAI API key provided, rule extraction uses the heuristic tier only")
	}
	return e
}

func (e *LLMExtractor) Extract(ctx context.Context, commentText string, ruleCtx models.RuleContext) (*models.RuleCandidate, error) {
	if e.client == nil {
		return e.fallback.Extract(ctx, commentText, ruleCtx)
	}

	raw, err := e.call(ctx, e.buildPrompt(commentText, ruleCtx))
	if err != nil {
		logger.WithError(err).Warnf("LLM rule extraction failed, falling back to heuristic tier")
		return e.fallback.Extract(ctx, commentText, ruleCtx)
	}

	candidate, err := e.parseResponse(raw, ruleCtx)
	if err != nil {
		logger.WithError(err).Warnf("Invalid LLM response, falling back to heuristic tier")
		return e.fallback.Extract(ctx, commentText, ruleCtx)
	}

	// candidate is nil when the model reported "no rule"
	return candidate, nil
}

func (e *LLMExtractor) buildPrompt(commentText string, ruleCtx models.RuleContext) string {
	line := ""
	if ruleCtx.Line != nil {
		line = fmt.Sprintf("%d", *ruleCtx.Line)
	}

	return fmt.Sprintf(`Your task is to extract a specific coding rule or guideline from the following GitHub pull request comment.

Context Information:
- Repository: %s
- Pull Request Title: %s
- File: %s
- Line: %s

Comment Text:
%q

The rule should be specific, actionable, focused on code quality, and written in clear, imperative language.

Respond with a JSON object:
{
    "rule_text": "The extracted rule in clear, imperative language",
    "rule_category": "naming|style|performance|security|best_practices|error_handling|testing|documentation|architecture|readability|general",
    "rule_severity": "critical|high|medium|low|info",
    "explanation": "Brief explanation of why this rule is important",
    "examples": ["Example of good code", "Example of bad code"],
    "related_concepts": ["Related programming concepts or patterns"]
}

If no specific coding rule can be extracted, return {"rule_text": null}.`,
		ruleCtx.RepositoryName, ruleCtx.PRTitle, ruleCtx.FilePath, line, commentText)
}

// call sends the chat completion with exponential-backoff retries
func (e *LLMExtractor) call(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < llmMaxRetries; attempt++ {
		if attempt > 0 {
			wait := e.retryWait * time.Duration(1<<(attempt-1))
			if err := sleepContext(ctx, wait); err != nil {
				return "", err
			}
		}

		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   1000,
			Temperature: 0.3,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			logger.WithError(err).Debugf("LLM call failed (attempt %d/%d)", attempt+1, llmMaxRetries)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}

		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("llm call failed after %d attempts: %w", llmMaxRetries, lastErr)
}

// parseResponse validates the three required fields and normalizes category
// and severity through the shared vocabularies. A "no rule" signal returns
// (nil, nil).
func (e *LLMExtractor) parseResponse(raw string, ruleCtx models.RuleContext) (*models.RuleCandidate, error) {
	var response llmRuleResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if strings.TrimSpace(response.RuleText) == "" {
		return nil, nil
	}
	if strings.TrimSpace(response.RuleCategory) == "" {
		return nil, fmt.Errorf("missing required field rule_category")
	}
	if strings.TrimSpace(response.RuleSeverity) == "" {
		return nil, fmt.Errorf("missing required field rule_severity")
	}

	ruleText := strings.TrimSpace(response.RuleText)
	if !strings.HasSuffix(ruleText, ".") {
		ruleText += "."
	}

	return &models.RuleCandidate{
		RuleText:    ruleText,
		Category:    normalizeCategory(response.RuleCategory),
		Severity:    normalizeSeverity(response.RuleSeverity),
		Confidence:  e.scoreResponse(&response, ruleText, ruleCtx),
		Extractor:   e.model,
		ResponseRaw: raw,
	}, nil
}

// scoreResponse starts from the base confidence and rewards completeness
func (e *LLMExtractor) scoreResponse(response *llmRuleResponse, ruleText string, ruleCtx models.RuleContext) float64 {
	confidence := 0.5

	if response.Explanation != "" {
		confidence += 0.05
	}
	if len(response.Examples) > 0 {
		confidence += 0.05
	}
	if len(response.RelatedConcepts) > 0 {
		confidence += 0.05
	}
	if len(ruleText) > 50 {
		confidence += 0.05
	}
	if ruleCtx.FilePath != "" {
		confidence += 0.05
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
