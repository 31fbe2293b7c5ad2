package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andywolf/armsignoff/internal/version"
)

// TokenRefreshBuffer is how long before expiry a cached installation token is replaced.
const TokenRefreshBuffer = 5 * time.Minute

// TokenSource supplies the bearer token for API requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token such as the Actions GITHUB_TOKEN or a PAT.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("github token is empty")
	}
	return string(t), nil
}

// InstallationToken is a GitHub App installation access token.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InstallationTokenSource exchanges App JWTs for installation tokens and caches
// the result until it nears expiry. Safe for concurrent use.
type InstallationTokenSource struct {
	mu sync.Mutex

	signer         *AppSigner
	installationID int64
	baseURL        string
	httpClient     *http.Client
	now            func() time.Time

	token     string
	expiresAt time.Time
}

// InstallationOption configures an InstallationTokenSource.
type InstallationOption func(*InstallationTokenSource)

// WithInstallationBaseURL overrides the API base URL (useful for testing and GHES).
func WithInstallationBaseURL(url string) InstallationOption {
	return func(s *InstallationTokenSource) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInstallationHTTPClient sets the HTTP client used for the exchange.
func WithInstallationHTTPClient(client *http.Client) InstallationOption {
	return func(s *InstallationTokenSource) {
		s.httpClient = client
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(fn func() time.Time) InstallationOption {
	return func(s *InstallationTokenSource) {
		s.now = fn
	}
}

// NewInstallationTokenSource creates a token source for one App installation.
func NewInstallationTokenSource(signer *AppSigner, installationID int64, opts ...InstallationOption) (*InstallationTokenSource, error) {
	if signer == nil {
		return nil, fmt.Errorf("app signer is required")
	}
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}

	s := &InstallationTokenSource{
		signer:         signer,
		installationID: installationID,
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token returns the cached token, exchanging a new one when it is missing or
// expires within TokenRefreshBuffer.
func (s *InstallationTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.expiresAt.After(s.now().Add(TokenRefreshBuffer)) {
		return s.token, nil
	}

	tok, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}
	s.token = tok.Token
	s.expiresAt = tok.ExpiresAt
	return s.token, nil
}

func (s *InstallationTokenSource) exchange(ctx context.Context) (*InstallationToken, error) {
	appJWT, err := s.signer.Sign(s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.baseURL, s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setAPIHeaders(req, appJWT)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(req, resp.StatusCode, body)
	}

	var tok InstallationToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.Token == "" {
		return nil, fmt.Errorf("token response did not include a token")
	}
	return &tok, nil
}

func setAPIHeaders(req *http.Request, bearer string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", version.UserAgent())
}
