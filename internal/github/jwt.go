package github

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MaxJWTDuration is the longest lifetime GitHub accepts for an App JWT.
const MaxJWTDuration = 10 * time.Minute

// jwtClockSkew backdates iat so a runner with a slightly fast clock is not rejected.
const jwtClockSkew = 60 * time.Second

// AppSigner signs JWTs that authenticate as a GitHub App.
type AppSigner struct {
	appID      string
	privateKey *rsa.PrivateKey
}

// NewAppSigner parses a PEM-encoded RSA key (PKCS#1 or PKCS#8) for the given App ID.
func NewAppSigner(appID string, privateKeyPEM []byte) (*AppSigner, error) {
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &AppSigner{appID: appID, privateKey: key}, nil
}

// Sign returns a JWT issued at now and valid for MaxJWTDuration.
func (s *AppSigner) Sign(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtClockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(MaxJWTDuration - jwtClockSkew)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
