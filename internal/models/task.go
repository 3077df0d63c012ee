package models

import "time"

// TaskKind identifies one of the five processing task types
type TaskKind string

const (
	TaskNormalizeComment TaskKind = "normalize_comment"
	TaskNormalizeSnippet TaskKind = "normalize_snippet"
	TaskNormalizeThread  TaskKind = "normalize_thread"
	TaskExtractRule      TaskKind = "extract_rule"
	TaskUpdateStatistics TaskKind = "update_statistics"
)

// Task is the sum type consumed by the processor's worker pool. Each task
// kind carries its own typed payload and is dispatched exhaustively.
type Task interface {
	Kind() TaskKind
}

// CommentTask normalizes and persists a review comment, then chains a rule
// extraction task
type CommentTask struct {
	GithubID        int64
	PullRequestID   string
	RepositoryID    string
	RepositoryName  string
	PRTitle         string
	Author          string
	Body            string
	Path            string
	Position        int
	Line            *int
	HasCodeSnippets bool
	GithubCreatedAt *time.Time
	GithubUpdatedAt *time.Time
}

func (*CommentTask) Kind() TaskKind { return TaskNormalizeComment }

// SnippetTask normalizes and persists one code snippet derived from a diff hunk
type SnippetTask struct {
	CommentGithubID int64
	FilePath        string
	LineStart       int
	LineEnd         int
	Content         string
	Language        string
}

func (*SnippetTask) Kind() TaskKind { return TaskNormalizeSnippet }

// ThreadTask normalizes and persists a comment thread keyed by path+position
type ThreadTask struct {
	CommentGithubID int64
	Path            string
	Position        int
	IsResolved      bool
}

func (*ThreadTask) Kind() TaskKind { return TaskNormalizeThread }

// ExtractRuleTask runs the rule extraction engine against a persisted comment
type ExtractRuleTask struct {
	ReviewCommentID string
	RepositoryID    string
	CommentText     string
	Context         RuleContext
}

func (*ExtractRuleTask) Kind() TaskKind { return TaskExtractRule }

// StatisticsTask updates the per-repository statistics of an extracted rule
type StatisticsTask struct {
	RuleID       string
	RepositoryID string
	Confidence   float64
}

func (*StatisticsTask) Kind() TaskKind { return TaskUpdateStatistics }
