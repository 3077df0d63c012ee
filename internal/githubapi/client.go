package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/prlens/prlens/pkg/logger"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com"

	// perPage is the maximum page size GitHub allows; a page with fewer
	// records than this is the last one.
	perPage = 100

	defaultRequestDelay = 100 * time.Millisecond

	// rateLimitFallbackWait is used when the quota is exhausted but no
	// reset time is known.
	rateLimitFallbackWait = 60 * time.Second
)

// Client is a rate-limited GitHub API client. It tracks the quota from
// response headers, sleeps before requests when the quota is exhausted,
// enforces a minimum delay between requests, and retries exactly once on a
// rate-limit rejection. Decoded records reuse go-github's types.
type Client struct {
	BaseURL      string
	RequestDelay time.Duration

	httpClient *http.Client

	mu          sync.Mutex
	remaining   int
	reset       time.Time // zero when unknown
	lastRequest time.Time // completion time of the last request
}

// NewClient creates a client. An empty token falls back to unauthenticated
// requests with their much smaller quota.
func NewClient(token string) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 30 * time.Second
	} else {
		logger.Warnf("No GitHub token provided, using unauthenticated requests")
	}

	return &Client{
		BaseURL:      defaultBaseURL,
		RequestDelay: defaultRequestDelay,
		httpClient:   httpClient,
		remaining:    5000,
	}
}

// RateLimitState returns the quota tracked from response headers. A zero
// reset time means the reset is unknown.
func (c *Client) RateLimitState() (remaining int, reset time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.reset
}

// FetchPage fetches a single page of records from a list endpoint
func (c *Client) FetchPage(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode page from %s: %w", path, err)
	}
	return records, nil
}

// FetchAllPages follows pagination until a page returns fewer records than
// the page-size cap
func (c *Client) FetchAllPages(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage

	for page := 1; ; page++ {
		pageParams := url.Values{}
		for key, values := range params {
			pageParams[key] = values
		}
		pageParams.Set("page", strconv.Itoa(page))
		pageParams.Set("per_page", strconv.Itoa(perPage))

		records, err := c.FetchPage(ctx, path, pageParams)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		all = append(all, records...)

		if len(records) < perPage {
			break
		}
	}

	return all, nil
}

// GetRepository fetches repository metadata
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	body, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), nil)
	if err != nil {
		return nil, err
	}

	var repository github.Repository
	if err := json.Unmarshal(body, &repository); err != nil {
		return nil, fmt.Errorf("failed to decode repository %s/%s: %w", owner, repo, err)
	}
	return &repository, nil
}

// ValidateRepositoryAccess checks that the repository is reachable with the
// current credentials
func (c *Client) ValidateRepositoryAccess(ctx context.Context, owner, repo string) error {
	if _, err := c.GetRepository(ctx, owner, repo); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrAccessDenied, owner, repo, err)
	}
	return nil
}

// GetPullRequests fetches all pull requests in the given state
func (c *Client) GetPullRequests(ctx context.Context, owner, repo, state string) ([]*github.PullRequest, error) {
	params := url.Values{}
	params.Set("state", state)

	raw, err := c.FetchAllPages(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), params)
	if err != nil {
		return nil, err
	}

	pullRequests := make([]*github.PullRequest, 0, len(raw))
	for _, record := range raw {
		var pr github.PullRequest
		if err := json.Unmarshal(record, &pr); err != nil {
			return nil, fmt.Errorf("failed to decode pull request: %w", err)
		}
		pullRequests = append(pullRequests, &pr)
	}
	return pullRequests, nil
}

// GetReviewComments fetches all review comments of a pull request
func (c *Client) GetReviewComments(ctx context.Context, owner, repo string, number int) ([]*github.PullRequestComment, error) {
	raw, err := c.FetchAllPages(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number), nil)
	if err != nil {
		return nil, err
	}

	comments := make([]*github.PullRequestComment, 0, len(raw))
	for _, record := range raw {
		var comment github.PullRequestComment
		if err := json.Unmarshal(record, &comment); err != nil {
			return nil, fmt.Errorf("failed to decode review comment: %w", err)
		}
		comments = append(comments, &comment)
	}
	return comments, nil
}

// GetIssueComments fetches all issue comments of a pull request
func (c *Client) GetIssueComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error) {
	raw, err := c.FetchAllPages(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number), nil)
	if err != nil {
		return nil, err
	}

	comments := make([]*github.IssueComment, 0, len(raw))
	for _, record := range raw {
		var comment github.IssueComment
		if err := json.Unmarshal(record, &comment); err != nil {
			return nil, fmt.Errorf("failed to decode issue comment: %w", err)
		}
		comments = append(comments, &comment)
	}
	return comments, nil
}

// GetRateLimit fetches the server-side rate limit status
func (c *Client) GetRateLimit(ctx context.Context) (*github.RateLimits, error) {
	body, err := c.get(ctx, "/rate_limit", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Resources *github.RateLimits `json:"resources"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode rate limit status: %w", err)
	}
	return response.Resources, nil
}

// get performs a GET request with rate limiting. A 403 whose body indicates
// rate limiting is retried exactly once; any other non-2xx status becomes a
// RequestFailedError.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	body, status, err := c.doOnce(ctx, path, params)
	if err != nil {
		return nil, err
	}

	if status == http.StatusForbidden && isRateLimitBody(body) {
		logger.Warnf("GitHub rate limit rejection on %s, retrying once", path)
		body, status, err = c.doOnce(ctx, path, params)
		if err != nil {
			return nil, err
		}
		if status == http.StatusForbidden && isRateLimitBody(body) {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, path)
		}
	}

	if status < 200 || status >= 300 {
		return nil, &RequestFailedError{Status: status, Body: string(body)}
	}

	return body, nil
}

// doOnce waits out the rate limit, performs the request, and updates the
// tracked quota from response headers
func (c *Client) doOnce(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	if err := c.waitBeforeRequest(ctx); err != nil {
		return nil, 0, err
	}

	requestURL := path
	if !strings.HasPrefix(requestURL, "http://") && !strings.HasPrefix(requestURL, "https://") {
		requestURL = c.BaseURL + "/" + strings.TrimPrefix(path, "/")
	}
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "prlens/1.0")

	logger.Debugf("GET %s", requestURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	c.mu.Lock()
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if value, convErr := strconv.Atoi(remaining); convErr == nil {
			c.remaining = value
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if value, convErr := strconv.ParseInt(reset, 10, 64); convErr == nil {
			c.reset = time.Unix(value, 0)
		}
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// waitBeforeRequest sleeps until the tracked reset time (+1s buffer) when the
// quota is exhausted, then enforces the minimum inter-request delay measured
// from the last request's completion
func (c *Client) waitBeforeRequest(ctx context.Context) error {
	c.mu.Lock()
	remaining := c.remaining
	reset := c.reset
	last := c.lastRequest
	c.mu.Unlock()

	if remaining <= 0 {
		if !reset.IsZero() {
			if wait := time.Until(reset); wait > 0 {
				logger.Infof("Rate limit exceeded, waiting %.1f seconds", wait.Seconds())
				if err := sleep(ctx, wait+time.Second); err != nil {
					return err
				}
			}
		} else {
			logger.Infof("Rate limit exceeded, waiting %.0f seconds", rateLimitFallbackWait.Seconds())
			if err := sleep(ctx, rateLimitFallbackWait); err != nil {
				return err
			}
		}
	}

	if !last.IsZero() {
		if sinceLast := time.Since(last); sinceLast < c.RequestDelay {
			if err := sleep(ctx, c.RequestDelay-sinceLast); err != nil {
				return err
			}
		}
	}

	return nil
}

func isRateLimitBody(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "rate limit")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
