package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prlens/prlens/internal/models"
	"github.com/prlens/prlens/internal/repositories"
	"github.com/prlens/prlens/pkg/logger"
)

// ErrValidation marks a task that was rejected before persistence. Validation
// failures count toward the error counter like any other task failure.
var ErrValidation = errors.New("task validation failed")

const (
	popTimeout      = time.Second
	shutdownTimeout = 5 * time.Second
)

// RuleExtractor is the extraction engine as the processor consumes it
type RuleExtractor interface {
	Extract(ctx context.Context, commentText string, ruleCtx models.RuleContext) (*models.RuleCandidate, error)
}

// Processor runs a pool of workers draining the task queue. Handlers may push
// follow-up tasks; ProcessBatch joins the queue, so a batch is complete only
// when its chained tasks are too.
type Processor struct {
	queue       *TaskQueue
	comments    *repositories.ReviewCommentRepository
	snippets    *repositories.CodeSnippetRepository
	threads     *repositories.CommentThreadRepository
	rules       *repositories.ExtractedRuleRepository
	statistics  *repositories.RuleStatisticsRepository
	extractor   RuleExtractor
	workerCount int

	mu        sync.Mutex
	processed int
	errorred  int
	active    int
	running   bool
	stopping  bool
	ctx       context.Context
	wg        sync.WaitGroup
}

func NewProcessor(
	comments *repositories.ReviewCommentRepository,
	snippets *repositories.CodeSnippetRepository,
	threads *repositories.CommentThreadRepository,
	rules *repositories.ExtractedRuleRepository,
	statistics *repositories.RuleStatisticsRepository,
	extractor RuleExtractor,
	workerCount int,
) *Processor {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Processor{
		queue:       NewTaskQueue(),
		comments:    comments,
		snippets:    snippets,
		threads:     threads,
		rules:       rules,
		statistics:  statistics,
		extractor:   extractor,
		workerCount: workerCount,
	}
}

// StartWorkers launches the worker pool. Starting an already running
// processor is a no-op.
func (p *Processor) StartWorkers(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.stopping = false
	p.ctx = ctx

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}

	logger.Infof("Started %d processing workers", p.workerCount)
}

// StopWorkers signals every worker with a sentinel and waits up to the
// shutdown timeout for the pool to drain
func (p *Processor) StopWorkers() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	p.mu.Unlock()

	for i := 0; i < p.workerCount; i++ {
		p.queue.PushSentinel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warnf("Worker pool did not drain within %s", shutdownTimeout)
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	logger.Infof("Stopped processing workers")
}

func (p *Processor) workerLoop(id int) {
	defer p.wg.Done()

	p.mu.Lock()
	p.active++
	ctx := p.ctx
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	for {
		task, ok := p.queue.Pop(popTimeout)
		if !ok {
			p.mu.Lock()
			stopping := p.stopping
			p.mu.Unlock()
			if stopping {
				return
			}
			continue
		}

		// nil task is the shutdown sentinel
		if task == nil {
			return
		}

		if err := p.dispatch(ctx, task); err != nil {
			p.mu.Lock()
			p.errorred++
			p.mu.Unlock()
			logger.WithError(err).Errorf("Worker %d failed to process %s task", id, task.Kind())
		} else {
			p.mu.Lock()
			p.processed++
			p.mu.Unlock()
		}

		p.queue.TaskDone()
	}
}

func (p *Processor) dispatch(ctx context.Context, task models.Task) error {
	switch t := task.(type) {
	case *models.CommentTask:
		return p.handleComment(t)
	case *models.SnippetTask:
		return p.handleSnippet(t)
	case *models.ThreadTask:
		return p.handleThread(t)
	case *models.ExtractRuleTask:
		return p.handleExtractRule(ctx, t)
	case *models.StatisticsTask:
		return p.handleStatistics(t)
	default:
		return fmt.Errorf("unknown task type %T", task)
	}
}

// handleComment validates, persists, and chains a rule extraction task
func (p *Processor) handleComment(task *models.CommentTask) error {
	if task.GithubID <= 0 {
		return fmt.Errorf("%w: comment github_id must be positive", ErrValidation)
	}
	if strings.TrimSpace(task.Body) == "" {
		return fmt.Errorf("%w: comment body is empty", ErrValidation)
	}
	if task.Path == "" {
		return fmt.Errorf("%w: comment path is empty", ErrValidation)
	}
	if task.Position <= 0 {
		return fmt.Errorf("%w: comment position must be positive", ErrValidation)
	}

	comment := models.NewReviewComment(task.PullRequestID, task.GithubID, task.Body, task.Path, task.Position)
	if task.Author != "" {
		author := task.Author
		comment.Author = &author
	}
	comment.Line = task.Line
	comment.GithubCreatedAt = task.GithubCreatedAt
	comment.GithubUpdatedAt = task.GithubUpdatedAt

	if err := p.comments.Upsert(comment); err != nil {
		return fmt.Errorf("failed to upsert review comment %d: %w", task.GithubID, err)
	}

	p.queue.Push(&models.ExtractRuleTask{
		ReviewCommentID: comment.ID,
		RepositoryID:    task.RepositoryID,
		CommentText:     task.Body,
		Context: models.RuleContext{
			FilePath:        task.Path,
			Author:          task.Author,
			PRTitle:         task.PRTitle,
			RepositoryName:  task.RepositoryName,
			Line:            task.Line,
			HasCodeSnippets: task.HasCodeSnippets,
		},
	})

	return nil
}

// handleSnippet resolves the owning comment and persists one snippet
func (p *Processor) handleSnippet(task *models.SnippetTask) error {
	comment, err := p.comments.GetByGithubID(task.CommentGithubID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: no review comment with github_id %d", ErrValidation, task.CommentGithubID)
		}
		return err
	}

	snippet := models.NewCodeSnippet(comment.ID, task.FilePath, task.LineStart, task.LineEnd, task.Content)
	if task.Language != "" {
		language := task.Language
		snippet.Language = &language
	}

	if err := snippet.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := p.snippets.Upsert(snippet); err != nil {
		return fmt.Errorf("failed to upsert code snippet for comment %d: %w", task.CommentGithubID, err)
	}
	return nil
}

// handleThread resolves the owning comment and upserts the thread anchored at
// its (path, position)
func (p *Processor) handleThread(task *models.ThreadTask) error {
	comment, err := p.comments.GetByGithubID(task.CommentGithubID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: no review comment with github_id %d", ErrValidation, task.CommentGithubID)
		}
		return err
	}

	thread := models.NewCommentThread(comment.PullRequestID, comment.ID, task.Path, task.Position)
	thread.IsResolved = task.IsResolved

	if err := p.threads.Upsert(thread); err != nil {
		return fmt.Errorf("failed to upsert comment thread for comment %d: %w", task.CommentGithubID, err)
	}
	return nil
}

// handleExtractRule runs the extraction engine. A nil candidate means the
// comment holds no rule, which is a successful outcome.
func (p *Processor) handleExtractRule(ctx context.Context, task *models.ExtractRuleTask) error {
	candidate, err := p.extractor.Extract(ctx, task.CommentText, task.Context)
	if err != nil {
		return fmt.Errorf("rule extraction failed for comment %s: %w", task.ReviewCommentID, err)
	}
	if candidate == nil {
		return nil
	}

	rule := models.NewExtractedRule(task.ReviewCommentID, candidate)
	if err := p.rules.Upsert(rule); err != nil {
		return fmt.Errorf("failed to upsert extracted rule for comment %s: %w", task.ReviewCommentID, err)
	}

	p.queue.Push(&models.StatisticsTask{
		RuleID:       rule.ID,
		RepositoryID: task.RepositoryID,
		Confidence:   rule.Confidence,
	})

	return nil
}

func (p *Processor) handleStatistics(task *models.StatisticsTask) error {
	if err := p.statistics.RecordOccurrence(task.RuleID, task.RepositoryID, task.Confidence); err != nil {
		return fmt.Errorf("failed to record rule occurrence for rule %s: %w", task.RuleID, err)
	}
	return nil
}

// Enqueue pushes a single task without waiting for completion
func (p *Processor) Enqueue(task models.Task) {
	p.queue.Push(task)
}

// ProcessBatch pushes the tasks and blocks until the queue is fully drained,
// chained follow-up tasks included. Success and error counts are derived from
// the counter deltas across the join.
func (p *Processor) ProcessBatch(tasks []models.Task) (*models.BatchResult, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, errors.New("processor is not running")
	}
	errorsBefore := p.errorred
	p.mu.Unlock()

	result := &models.BatchResult{
		Total:     len(tasks),
		StartTime: time.Now().UTC(),
	}

	for _, task := range tasks {
		p.queue.Push(task)
	}
	p.queue.Join()

	p.mu.Lock()
	errorsAfter := p.errorred
	p.mu.Unlock()

	result.Errors = errorsAfter - errorsBefore
	result.Success = result.Total - result.Errors
	if result.Success < 0 {
		result.Success = 0
	}
	result.EndTime = time.Now().UTC()

	return result, nil
}

// Stats returns a snapshot of the processor counters
func (p *Processor) Stats() models.ProcessingStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return models.ProcessingStats{
		ProcessedCount: p.processed,
		ErrorCount:     p.errorred,
		QueueSize:      p.queue.Len(),
		WorkerCount:    p.active,
		IsRunning:      p.running,
	}
}
