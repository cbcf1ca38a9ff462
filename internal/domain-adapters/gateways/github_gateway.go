package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

const (
	// Max retries for transient errors
	maxRetries = 3
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
)

// HTTPGitHubGateway implements MilestoneGateway against the GitHub REST API
type HTTPGitHubGateway struct {
	client    *http.Client
	baseURL   string
	token     string
	userAgent string
	logger    interfaces.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewHTTPGitHubGateway creates a new GitHub gateway with HTTP client.
// baseURL defaults to https://api.github.com.
func NewHTTPGitHubGateway(baseURL, token string, logger interfaces.Logger) *HTTPGitHubGateway {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &HTTPGitHubGateway{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: "releaser/1.0",
		logger:    logger,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// checkRateLimit checks GitHub API rate limit headers and returns error if exhausted
func (g *HTTPGitHubGateway) checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil // No rate limit header, continue
	}

	remainingInt, err := strconv.Atoi(remaining)
	if err != nil {
		return nil // Invalid header, ignore
	}

	// If exhausted, return error immediately (don't wait in CI)
	if remainingInt == 0 {
		resetTime := resp.Header.Get("X-RateLimit-Reset")
		if resetTime != "" {
			if resetUnix, err := strconv.ParseInt(resetTime, 10, 64); err == nil {
				resetAt := time.Unix(resetUnix, 0)
				return fmt.Errorf("GitHub API rate limit exceeded (0 remaining), resets at %s", resetAt.Format(time.RFC3339))
			}
		}
		return fmt.Errorf("GitHub API rate limit exceeded (0 remaining)")
	}

	if remainingInt <= 10 {
		g.logger.Warn("GitHub API rate limit low", interfaces.F("remaining", remainingInt))
	}

	return nil
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, // 403 - rate limit
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes an HTTP request with exponential backoff retry
func (g *HTTPGitHubGateway) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if sleepErr := g.sleep(req.Context(), calculateBackoff(attempt-1)); sleepErr != nil {
				return nil, sleepErr
			}
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}
		}

		resp, err = g.client.Do(req)
		if err != nil {
			// Network errors are retryable
			if attempt < maxRetries {
				continue
			}
			return nil, err
		}

		if rateLimitErr := g.checkRateLimit(resp); rateLimitErr != nil {
			//nolint:errcheck,gosec // G104: Best effort close on rate limit error
			resp.Body.Close()
			return nil, rateLimitErr
		}

		// Success or non-retryable error
		if !isRetryableError(resp.StatusCode) {
			return resp, nil
		}

		if attempt < maxRetries {
			//nolint:errcheck,gosec // G104: Best effort close before retry
			resp.Body.Close()
			continue
		}

		// Max retries reached
		return resp, nil
	}

	return resp, err
}

func (g *HTTPGitHubGateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", g.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// githubMilestone represents the GitHub API milestone format
type githubMilestone struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url,omitempty"`
}

// FindMilestone returns the milestone with the given title, or nil when none exists
func (g *HTTPGitHubGateway) FindMilestone(ctx context.Context, owner, repo, title string) (*gateways.Milestone, error) {
	path := fmt.Sprintf("/repos/%s/%s/milestones?state=all&per_page=100",
		url.PathEscape(owner), url.PathEscape(repo))

	req, err := g.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.doWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list milestones: status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var milestones []githubMilestone
	if err := json.NewDecoder(resp.Body).Decode(&milestones); err != nil {
		return nil, fmt.Errorf("failed to decode milestones: %w", err)
	}

	for _, m := range milestones {
		if m.Title == title {
			return &gateways.Milestone{
				Number:  m.Number,
				Title:   m.Title,
				State:   m.State,
				HTMLURL: m.HTMLURL,
			}, nil
		}
	}
	return nil, nil
}

// CloseMilestone marks a milestone closed
func (g *HTTPGitHubGateway) CloseMilestone(ctx context.Context, owner, repo string, number int) error {
	path := fmt.Sprintf("/repos/%s/%s/milestones/%d", url.PathEscape(owner), url.PathEscape(repo), number)

	req, err := g.newRequest(ctx, http.MethodPatch, path, map[string]string{"state": "closed"})
	if err != nil {
		return err
	}

	resp, err := g.doWithRetry(req)
	if err != nil {
		return fmt.Errorf("failed to close milestone: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to close milestone: status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
