package models

import "time"

// BatchResult summarizes one ProcessBatch call
type BatchResult struct {
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Errors    int       `json:"errors"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// ProcessingStats is a snapshot of the processor's counters
type ProcessingStats struct {
	ProcessedCount int  `json:"processed_count"`
	ErrorCount     int  `json:"error_count"`
	QueueSize      int  `json:"queue_size"`
	WorkerCount    int  `json:"worker_count"`
	IsRunning      bool `json:"is_running"`
}

// RunResult aggregates the outcome of one repository collection run.
// Per-pull-request failures are accumulated in Errors; the run itself is
// best-effort and partial-success-tolerant.
type RunResult struct {
	Repository     *Repository `json:"repository"`
	PullRequests   int         `json:"pull_requests"`
	ReviewComments int         `json:"review_comments"`
	CodeSnippets   int         `json:"code_snippets"`
	CommentThreads int         `json:"comment_threads"`
	Errors         []string    `json:"errors"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        time.Time   `json:"end_time"`
}

// RateLimitStatus mirrors the client's view of the API quota
type RateLimitStatus struct {
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at"`
}

// CollectionStatus reports stored entity counts plus the rate limit state
type CollectionStatus struct {
	Repositories   int             `json:"repositories"`
	PullRequests   int             `json:"pull_requests"`
	ReviewComments int             `json:"review_comments"`
	CodeSnippets   int             `json:"code_snippets"`
	CommentThreads int             `json:"comment_threads"`
	ExtractedRules int             `json:"extracted_rules"`
	RateLimit      RateLimitStatus `json:"rate_limit"`
}

// CleanupResult reports how many rows a retention cleanup removed
type CleanupResult struct {
	CodeSnippets   int64 `json:"code_snippets"`
	CommentThreads int64 `json:"comment_threads"`
	ReviewComments int64 `json:"review_comments"`
	PullRequests   int64 `json:"pull_requests"`
	Repositories   int64 `json:"repositories"`
}
