// Package github is a small REST client for the pull request signals the
// auto-signoff pipeline reads and the labels it writes.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

const (
	perPage  = 100
	maxPages = 10
)

// Client calls the GitHub REST API for a single repository.
type Client struct {
	owner      string
	repo       string
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the API base URL (useful for testing and GHES).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables the limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a client for owner/repo authenticated by tokens.
func NewClient(owner, repo string, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	c := &Client{
		owner:      owner,
		repo:       repo,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// CommitStatus is one status reported against a commit.
type CommitStatus struct {
	Context   string    `json:"context"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowRun is a GitHub Actions workflow run. Conclusion is empty while the
// run is in progress.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	HeadSHA    string    `json:"head_sha"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Artifact is a workflow run artifact. Only the name carries meaning here.
type Artifact struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListLabels returns the names of the labels on an issue or pull request.
func (c *Client) ListLabels(ctx context.Context, issueNumber int) ([]string, error) {
	labels, err := getPaged(ctx, c, c.repoPath("issues", strconv.Itoa(issueNumber), "labels"), nil,
		func(body []byte) ([]Label, error) {
			var page []Label
			err := json.Unmarshal(body, &page)
			return page, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels on #%d: %w", issueNumber, err)
	}

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names, nil
}

// ListCommitStatuses returns every status reported for ref, newest first.
func (c *Client) ListCommitStatuses(ctx context.Context, ref string) ([]CommitStatus, error) {
	statuses, err := getPaged(ctx, c, c.repoPath("commits", ref, "statuses"), nil,
		func(body []byte) ([]CommitStatus, error) {
			var page []CommitStatus
			err := json.Unmarshal(body, &page)
			return page, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses for %s: %w", ref, err)
	}
	return statuses, nil
}

// ListWorkflowRuns returns the workflow runs triggered for headSHA.
func (c *Client) ListWorkflowRuns(ctx context.Context, headSHA string) ([]WorkflowRun, error) {
	query := url.Values{"head_sha": {headSHA}}
	runs, err := getPaged(ctx, c, c.repoPath("actions", "runs"), query,
		func(body []byte) ([]WorkflowRun, error) {
			var page struct {
				WorkflowRuns []WorkflowRun `json:"workflow_runs"`
			}
			err := json.Unmarshal(body, &page)
			return page.WorkflowRuns, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs for %s: %w", headSHA, err)
	}
	return runs, nil
}

// ListWorkflowRunArtifacts returns the artifacts uploaded by a run.
func (c *Client) ListWorkflowRunArtifacts(ctx context.Context, runID int64) ([]Artifact, error) {
	artifacts, err := getPaged(ctx, c, c.repoPath("actions", "runs", strconv.FormatInt(runID, 10), "artifacts"), nil,
		func(body []byte) ([]Artifact, error) {
			var page struct {
				Artifacts []Artifact `json:"artifacts"`
			}
			err := json.Unmarshal(body, &page)
			return page.Artifacts, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for run %d: %w", runID, err)
	}
	return artifacts, nil
}

// AddLabels adds labels to an issue or pull request in one request.
func (c *Client) AddLabels(ctx context.Context, issueNumber int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string][]string{"labels": labels})
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}

	path := c.repoPath("issues", strconv.Itoa(issueNumber), "labels")
	if _, err := c.do(ctx, http.MethodPost, path, nil, payload); err != nil {
		return fmt.Errorf("failed to add labels to #%d: %w", issueNumber, err)
	}
	return nil
}

// RemoveLabel removes a label from an issue or pull request. A label that is
// already gone is not an error.
func (c *Client) RemoveLabel(ctx context.Context, issueNumber int, label string) error {
	path := c.repoPath("issues", strconv.Itoa(issueNumber), "labels", label)
	if _, err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove label %q from #%d: %w", label, issueNumber, err)
	}
	return nil
}

func (c *Client) repoPath(segments ...string) string {
	escaped := make([]string, 0, len(segments)+3)
	escaped = append(escaped, "repos", url.PathEscape(c.owner), url.PathEscape(c.repo))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

// getPaged follows page numbers until a short page or maxPages.
func getPaged[T any](ctx context.Context, c *Client, path string, query url.Values, decode func([]byte) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		body, err := c.do(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}
		items, err := decode(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		all = append(all, items...)
		if len(items) < perPage {
			break
		}
	}
	return all, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setAPIHeaders(req, token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(req, resp.StatusCode, respBody)
	}
	return respBody, nil
}
