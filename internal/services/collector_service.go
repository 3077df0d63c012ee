package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/prlens/prlens/internal/githubapi"
	"github.com/prlens/prlens/internal/models"
	"github.com/prlens/prlens/internal/repositories"
	"github.com/prlens/prlens/internal/workers"
	"github.com/prlens/prlens/pkg/logger"
)

// CollectorService orchestrates a full collection run for one repository:
// fetch from the GitHub API, feed normalization tasks to the processor, and
// aggregate per-pull-request outcomes. Runs are best-effort: a failing pull
// request is recorded in the result and the run continues.
type CollectorService struct {
	client           *githubapi.Client
	processor        *workers.Processor
	snippetExtractor *SnippetExtractor

	repos    *repositories.RepositoryRepository
	pulls    *repositories.PullRequestRepository
	comments *repositories.ReviewCommentRepository
	snippets *repositories.CodeSnippetRepository
	threads  *repositories.CommentThreadRepository
	rules    *repositories.ExtractedRuleRepository
}

func NewCollectorService(
	client *githubapi.Client,
	processor *workers.Processor,
	snippetExtractor *SnippetExtractor,
	repos *repositories.RepositoryRepository,
	pulls *repositories.PullRequestRepository,
	comments *repositories.ReviewCommentRepository,
	snippets *repositories.CodeSnippetRepository,
	threads *repositories.CommentThreadRepository,
	rules *repositories.ExtractedRuleRepository,
) *CollectorService {
	return &CollectorService{
		client:           client,
		processor:        processor,
		snippetExtractor: snippetExtractor,
		repos:            repos,
		pulls:            pulls,
		comments:         comments,
		snippets:         snippets,
		threads:          threads,
		rules:            rules,
	}
}

// CollectRepositoryData runs a full collection for owner/name. Access and
// repository-level failures abort the run; pull-request-level failures are
// accumulated in the result.
func (s *CollectorService) CollectRepositoryData(ctx context.Context, owner, name string) (*models.RunResult, error) {
	start := time.Now().UTC()

	if err := s.client.ValidateRepositoryAccess(ctx, owner, name); err != nil {
		return nil, err
	}

	ghRepo, err := s.client.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, name, err)
	}

	repo := models.NewRepository(ghRepo.GetID(), owner, name, ghRepo.GetFullName())
	if repo.FullName == "" {
		repo.FullName = owner + "/" + name
	}
	if language := ghRepo.GetLanguage(); language != "" {
		repo.Language = &language
	}
	repo.IsActive = !ghRepo.GetArchived() && !ghRepo.GetDisabled()

	if err := s.repos.Upsert(repo); err != nil {
		return nil, fmt.Errorf("failed to store repository %s: %w", repo.FullName, err)
	}

	result := &models.RunResult{Repository: repo, StartTime: start}

	pullRequests, err := s.client.GetPullRequests(ctx, owner, name, models.PullRequestStateClosed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull requests for %s: %w", repo.FullName, err)
	}

	logger.WithField("repository", repo.FullName).Infof("Collecting %d pull requests", len(pullRequests))

	for _, ghPR := range pullRequests {
		if err := s.collectPullRequest(ctx, owner, name, repo, ghPR, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pull request #%d: %v", ghPR.GetNumber(), err))
			continue
		}
		result.PullRequests++
	}

	result.EndTime = time.Now().UTC()

	logger.WithFields(logrus.Fields{
		"repository":    repo.FullName,
		"pull_requests": result.PullRequests,
		"comments":      result.ReviewComments,
		"errors":        len(result.Errors),
	}).Infof("Collection run finished")

	return result, nil
}

// collectPullRequest stores one pull request and processes its comments. The
// comment batch is joined before snippet and thread batches are pushed so
// every snippet and thread finds its owning comment persisted.
func (s *CollectorService) collectPullRequest(ctx context.Context, owner, name string, repo *models.Repository, ghPR *github.PullRequest, result *models.RunResult) error {
	pr := models.NewPullRequest(repo.ID, ghPR.GetID(), ghPR.GetNumber(), ghPR.GetTitle(), ghPR.GetState())
	if author := ghPR.GetUser().GetLogin(); author != "" {
		pr.Author = &author
	}
	if ts := ghPR.MergedAt; ts != nil {
		pr.SetMergedAt(ts.Time.UTC())
	}
	if ts := ghPR.ClosedAt; ts != nil {
		closedAt := ts.Time.UTC()
		pr.ClosedAt = &closedAt
	}
	pr.GithubCreatedAt = timestampPtr(ghPR.CreatedAt)
	pr.GithubUpdatedAt = timestampPtr(ghPR.UpdatedAt)

	if err := s.pulls.Upsert(pr); err != nil {
		return fmt.Errorf("failed to store pull request: %w", err)
	}

	reviewComments, err := s.client.GetReviewComments(ctx, owner, name, pr.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch review comments: %w", err)
	}
	issueComments, err := s.client.GetIssueComments(ctx, owner, name, pr.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch issue comments: %w", err)
	}

	commentTasks := make([]models.Task, 0, len(reviewComments)+len(issueComments))
	snippetsByComment := make(map[int64][]SnippetCandidate, len(reviewComments))

	for _, comment := range reviewComments {
		candidates := s.snippetExtractor.Extract(comment.GetDiffHunk(), comment.GetPath())
		snippetsByComment[comment.GetID()] = candidates

		var line *int
		if comment.Line != nil {
			value := comment.GetLine()
			line = &value
		}

		commentTasks = append(commentTasks, &models.CommentTask{
			GithubID:        comment.GetID(),
			PullRequestID:   pr.ID,
			RepositoryID:    repo.ID,
			RepositoryName:  repo.FullName,
			PRTitle:         pr.Title,
			Author:          comment.GetUser().GetLogin(),
			Body:            comment.GetBody(),
			Path:            comment.GetPath(),
			Position:        comment.GetPosition(),
			Line:            line,
			HasCodeSnippets: len(candidates) > 0,
			GithubCreatedAt: timestampPtr(comment.CreatedAt),
			GithubUpdatedAt: timestampPtr(comment.UpdatedAt),
		})
	}

	// Issue comments carry no diff anchor; they flow through the same
	// validation and are counted among the batch errors.
	for _, comment := range issueComments {
		commentTasks = append(commentTasks, &models.CommentTask{
			GithubID:        comment.GetID(),
			PullRequestID:   pr.ID,
			RepositoryID:    repo.ID,
			RepositoryName:  repo.FullName,
			PRTitle:         pr.Title,
			Author:          comment.GetUser().GetLogin(),
			Body:            comment.GetBody(),
			GithubCreatedAt: timestampPtr(comment.CreatedAt),
			GithubUpdatedAt: timestampPtr(comment.UpdatedAt),
		})
	}

	commentBatch, err := s.processor.ProcessBatch(commentTasks)
	if err != nil {
		return fmt.Errorf("failed to process comment batch: %w", err)
	}
	result.ReviewComments += commentBatch.Success
	if commentBatch.Errors > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("pull request #%d: %d comment tasks failed", pr.Number, commentBatch.Errors))
	}

	snippetTasks := make([]models.Task, 0)
	threadTasks := make([]models.Task, 0, len(reviewComments))
	for _, comment := range reviewComments {
		for _, candidate := range snippetsByComment[comment.GetID()] {
			snippetTasks = append(snippetTasks, &models.SnippetTask{
				CommentGithubID: comment.GetID(),
				FilePath:        candidate.Path,
				LineStart:       candidate.LineStart,
				LineEnd:         candidate.LineEnd,
				Content:         candidate.Content,
				Language:        candidate.Language,
			})
		}
		threadTasks = append(threadTasks, &models.ThreadTask{
			CommentGithubID: comment.GetID(),
			Path:            comment.GetPath(),
			Position:        comment.GetPosition(),
		})
	}

	snippetBatch, err := s.processor.ProcessBatch(snippetTasks)
	if err != nil {
		return fmt.Errorf("failed to process snippet batch: %w", err)
	}
	result.CodeSnippets += snippetBatch.Success
	if snippetBatch.Errors > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("pull request #%d: %d snippet tasks failed", pr.Number, snippetBatch.Errors))
	}

	threadBatch, err := s.processor.ProcessBatch(threadTasks)
	if err != nil {
		return fmt.Errorf("failed to process thread batch: %w", err)
	}
	result.CommentThreads += threadBatch.Success
	if threadBatch.Errors > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("pull request #%d: %d thread tasks failed", pr.Number, threadBatch.Errors))
	}

	return nil
}

// GetCollectionStatus reports stored entity counts and the rate limit state
// tracked from response headers
func (s *CollectorService) GetCollectionStatus() (*models.CollectionStatus, error) {
	status := &models.CollectionStatus{}

	var err error
	if status.Repositories, err = s.repos.Count(); err != nil {
		return nil, err
	}
	if status.PullRequests, err = s.pulls.Count(); err != nil {
		return nil, err
	}
	if status.ReviewComments, err = s.comments.Count(); err != nil {
		return nil, err
	}
	if status.CodeSnippets, err = s.snippets.Count(); err != nil {
		return nil, err
	}
	if status.CommentThreads, err = s.threads.Count(); err != nil {
		return nil, err
	}
	if status.ExtractedRules, err = s.rules.Count(); err != nil {
		return nil, err
	}

	remaining, reset := s.client.RateLimitState()
	status.RateLimit.Remaining = remaining
	if !reset.IsZero() {
		resetAt := reset.UTC()
		status.RateLimit.ResetAt = &resetAt
	}

	return status, nil
}

// CleanupOldData deletes rows older than the retention window, children
// before parents so foreign keys never dangle mid-cleanup
func (s *CollectorService) CleanupOldData(days int) (*models.CleanupResult, error) {
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result := &models.CleanupResult{}

	var err error
	if result.CodeSnippets, err = s.snippets.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete old code snippets: %w", err)
	}
	if result.CommentThreads, err = s.threads.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete old comment threads: %w", err)
	}
	if result.ReviewComments, err = s.comments.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete old review comments: %w", err)
	}
	if result.PullRequests, err = s.pulls.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete old pull requests: %w", err)
	}
	if result.Repositories, err = s.repos.DeleteOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete old repositories: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"cutoff":          cutoff,
		"review_comments": result.ReviewComments,
		"pull_requests":   result.PullRequests,
	}).Infof("Retention cleanup finished")

	return result, nil
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
