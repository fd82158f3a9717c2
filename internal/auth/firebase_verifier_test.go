package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newJWKSServer(t *testing.T, publicKey rsa.PublicKey) *httptest.Server {
	t.Helper()
	jwk := map[string]string{
		"kty": "RSA",
		"alg": "RS256",
		"kid": "test-key",
		"use": "sig",
		"n":   encodeBigInt(publicKey.N),
		"e":   encodeBigInt(big.NewInt(int64(publicKey.E))),
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{jwk}})
	}))
}

func encodeBigInt(value *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(value.Bytes())
}

func signFirebaseToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestFirebaseVerifierValidatesTokenUsingJWKS(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signFirebaseToken(t, privateKey, jwt.MapClaims{
		"aud":   "hero-hub-test",
		"iss":   "https://securetoken.google.com/hero-hub-test",
		"sub":   "firebase-user-1",
		"email": "owner@example.com",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	verifier, err := NewFirebaseVerifier(FirebaseVerifierConfig{
		ProjectID:  "hero-hub-test",
		JWKSURL:    jwksServer.URL,
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	verified, err := verifier.Verify(context.Background(), signedToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}

	if verified.Subject != "firebase-user-1" {
		t.Fatalf("unexpected subject %s", verified.Subject)
	}
	if verified.Email != "owner@example.com" {
		t.Fatalf("unexpected email %s", verified.Email)
	}
}

func TestFirebaseVerifierRejectsWrongIssuer(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signFirebaseToken(t, privateKey, jwt.MapClaims{
		"aud": "hero-hub-test",
		"iss": "https://securetoken.google.com/another-project",
		"sub": "firebase-user-1",
		"exp": now.Add(5 * time.Minute).Unix(),
		"iat": now.Unix(),
	})

	verifier, err := NewFirebaseVerifier(FirebaseVerifierConfig{
		ProjectID:  "hero-hub-test",
		JWKSURL:    jwksServer.URL,
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), signedToken); err == nil {
		t.Fatalf("expected verification to fail for foreign issuer")
	}
}

func TestFirebaseVerifierRejectsExpiredToken(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signFirebaseToken(t, privateKey, jwt.MapClaims{
		"aud": "hero-hub-test",
		"iss": "https://securetoken.google.com/hero-hub-test",
		"sub": "firebase-user-1",
		"exp": now.Add(-5 * time.Minute).Unix(),
		"iat": now.Add(-10 * time.Minute).Unix(),
	})

	verifier, err := NewFirebaseVerifier(FirebaseVerifierConfig{
		ProjectID:  "hero-hub-test",
		JWKSURL:    jwksServer.URL,
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), signedToken); err == nil {
		t.Fatalf("expected verification to fail for expired token")
	}
}

func TestNewFirebaseVerifierRequiresProjectID(t *testing.T) {
	if _, err := NewFirebaseVerifier(FirebaseVerifierConfig{}); err == nil {
		t.Fatalf("expected constructor error for missing project id")
	}
}
