package cli

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/andywolf/armsignoff/internal/config"
	"github.com/andywolf/armsignoff/internal/github"
)

func TestNewTokenSource_Static(t *testing.T) {
	cfg := &config.Config{GitHub: config.GitHubConfig{Token: "ghs_static"}}

	tokens, err := newTokenSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newTokenSource() error = %v", err)
	}
	if _, ok := tokens.(github.StaticToken); !ok {
		t.Fatalf("expected StaticToken, got %T", tokens)
	}

	got, err := tokens.Token(context.Background())
	if err != nil || got != "ghs_static" {
		t.Errorf("Token() = %q, %v", got, err)
	}
}

func TestNewTokenSource_AppKeyFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	path := filepath.Join(t.TempDir(), "app.pem")
	if err := os.WriteFile(path, pemData, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{GitHub: config.GitHubConfig{
		APIURL:         "https://github.example.com/api/v3",
		AppID:          12345,
		InstallationID: 67890,
		PrivateKeyFile: path,
	}}

	tokens, err := newTokenSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newTokenSource() error = %v", err)
	}
	if _, ok := tokens.(*github.InstallationTokenSource); !ok {
		t.Fatalf("expected *InstallationTokenSource, got %T", tokens)
	}
}

func TestNewTokenSource_AppKeyErrors(t *testing.T) {
	missing := &config.Config{GitHub: config.GitHubConfig{
		AppID:          1,
		InstallationID: 2,
		PrivateKeyFile: filepath.Join(t.TempDir(), "missing.pem"),
	}}
	if _, err := newTokenSource(context.Background(), missing); err == nil {
		t.Error("expected error for missing key file")
	}

	path := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}
	bad := &config.Config{GitHub: config.GitHubConfig{AppID: 1, InstallationID: 2, PrivateKeyFile: path}}
	if _, err := newTokenSource(context.Background(), bad); err == nil {
		t.Error("expected error for invalid key")
	}
}
