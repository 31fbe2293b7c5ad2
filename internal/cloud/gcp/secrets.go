package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher fetches secret payloads by path.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the GCP Secret Manager client
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerClient creates a Secret Manager client. projectID is used to
// expand bare secret names; when empty it is read from the environment.
func NewSecretManagerClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	if projectID == "" {
		projectID = projectFromEnv()
	}

	return &SecretManagerClient{
		client:    client,
		projectID: projectID,
	}, nil
}

func projectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// FetchSecret retrieves a secret payload. secretPath may be a full version
// path, a secret path without version (latest is used), or a bare secret name.
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	name, err := NormalizeSecretPath(secretPath, c.projectID)
	if err != nil {
		return "", err
	}

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return string(result.Payload.Data), nil
}

// NormalizeSecretPath expands secretPath to a full version resource name.
func NormalizeSecretPath(secretPath, projectID string) (string, error) {
	secretPath = strings.TrimSpace(secretPath)
	if secretPath == "" {
		return "", fmt.Errorf("secret path is empty")
	}

	if strings.HasPrefix(secretPath, "projects/") {
		if strings.Contains(secretPath, "/versions/") {
			return secretPath, nil
		}
		if strings.Contains(secretPath, "/secrets/") {
			return secretPath + "/versions/latest", nil
		}
		return "", fmt.Errorf("invalid secret path %q", secretPath)
	}

	if strings.Contains(secretPath, "/") {
		return "", fmt.Errorf("invalid secret name %q", secretPath)
	}
	if projectID == "" {
		return "", fmt.Errorf("project ID is required to resolve secret %q", secretPath)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretPath), nil
}

// Close closes the Secret Manager client
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

var _ SecretFetcher = (*SecretManagerClient)(nil)
