package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func generateTestKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	return privateKey, pemData
}

func TestNewAppSigner(t *testing.T) {
	key, pemData := generateTestKey(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal PKCS8: %v", err)
	}
	pkcs8PEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})

	tests := []struct {
		name       string
		appID      string
		pemData    []byte
		errContain string
	}{
		{name: "pkcs1", appID: "12345", pemData: pemData},
		{name: "pkcs8", appID: "12345", pemData: pkcs8PEM},
		{name: "empty app ID", pemData: pemData, errContain: "app ID cannot be empty"},
		{name: "invalid PEM", appID: "12345", pemData: []byte("not a pem"), errContain: "failed to decode PEM block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewAppSigner(tt.appID, tt.pemData)
			if tt.errContain != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContain) {
					t.Fatalf("expected error containing %q, got %v", tt.errContain, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if signer == nil {
				t.Fatal("expected signer, got nil")
			}
		})
	}
}

func TestAppSigner_Sign(t *testing.T) {
	key, pemData := generateTestKey(t)
	signer, err := NewAppSigner("12345", pemData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	signed, err := signer.Sign(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("failed to verify token: %v", err)
	}
	if claims.Issuer != "12345" {
		t.Errorf("expected issuer 12345, got %s", claims.Issuer)
	}
	if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time); lifetime > MaxJWTDuration {
		t.Errorf("lifetime %v exceeds %v", lifetime, MaxJWTDuration)
	}
	if !claims.IssuedAt.Before(now) {
		t.Error("expected iat to be backdated")
	}
}

func TestInstallationTokenSource_CachesUntilRefreshBuffer(t *testing.T) {
	_, pemData := generateTestKey(t)
	signer, err := NewAppSigner("12345", pemData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/app/installations/67890/access_tokens" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer eyJ") {
			t.Errorf("expected JWT bearer, got %s", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "ghs_token_" + string(rune('0'+n)),
			"expires_at": now.Add(time.Hour).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	source, err := NewInstallationTokenSource(signer, 67890,
		WithInstallationBaseURL(server.URL),
		WithNowFunc(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second || first != "ghs_token_1" {
		t.Errorf("expected cached token ghs_token_1, got %s and %s", first, second)
	}

	// Inside the refresh buffer the token must be replaced.
	now = now.Add(time.Hour - TokenRefreshBuffer + time.Second)
	third, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third != "ghs_token_2" {
		t.Errorf("expected refreshed token, got %s", third)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 exchanges, got %d", got)
	}
}

func TestInstallationTokenSource_Errors(t *testing.T) {
	_, pemData := generateTestKey(t)
	signer, _ := NewAppSigner("12345", pemData)

	if _, err := NewInstallationTokenSource(nil, 1); err == nil {
		t.Error("expected error for nil signer")
	}
	if _, err := NewInstallationTokenSource(signer, 0); err == nil {
		t.Error("expected error for zero installation ID")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	source, err := NewInstallationTokenSource(signer, 1, WithInstallationBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = source.Token(context.Background())
	if !IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}
