package auth_test

import (
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/testutil"
)

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestParseAndVerifyToken_Valid(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := testutil.GenerateDoctorToken(t, key, "user-123")
	principal, err := verifier.ParseAndVerifyToken(token)
	if err != nil {
		t.Fatalf("ParseAndVerifyToken failed: %v", err)
	}
	if principal.UserID != "user-123" {
		t.Errorf("Expected sub user-123, got %s", principal.UserID)
	}
	if len(principal.Roles) != 1 || principal.Roles[0] != "doktor" {
		t.Errorf("Expected roles [doktor], got %v", principal.Roles)
	}
}

func TestParseAndVerifyToken_Empty(t *testing.T) {
	verifier, _ := testutil.CreateTestVerifier(t)

	if _, err := verifier.ParseAndVerifyToken(""); !errors.Is(err, auth.ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestParseAndVerifyToken_Expired(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseAndVerifyToken_MissingExpiry(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
	})
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for token without exp, got %v", err)
	}
}

func TestParseAndVerifyToken_WrongIssuer(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": "https://evil.example.com/realms/medtrack",
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrInvalidIssuer) {
		t.Errorf("Expected ErrInvalidIssuer, got %v", err)
	}
}

func TestParseAndVerifyToken_MissingKid(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for missing kid, got %v", err)
	}
}

func TestParseAndVerifyToken_MissingSub(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "test-key-id", jwt.MapClaims{
		"iss": testutil.TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrMissingSub) {
		t.Errorf("Expected ErrMissingSub, got %v", err)
	}
}

func TestParseAndVerifyToken_Audience(t *testing.T) {
	privateKey, publicKey := testutil.GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(
		auth.Config{Issuer: testutil.TestIssuer, Audience: "clinic-mobile"},
		auth.NewTestJWKS(publicKey),
	)

	token := signToken(t, privateKey, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"aud": "clinic-mobile",
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); err != nil {
		t.Fatalf("Expected matching audience to verify, got %v", err)
	}

	wrong := signToken(t, privateKey, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"aud": "other-client",
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(wrong); !errors.Is(err, auth.ErrInvalidAudience) {
		t.Errorf("Expected ErrInvalidAudience, got %v", err)
	}

	missing := signToken(t, privateKey, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(missing); !errors.Is(err, auth.ErrInvalidAudience) {
		t.Errorf("Expected ErrInvalidAudience for missing aud, got %v", err)
	}
}

func TestParseAndVerifyToken_NoAudienceConfigured(t *testing.T) {
	verifier, key := testutil.CreateTestVerifier(t)

	token := signToken(t, key, "test-key-id", jwt.MapClaims{
		"sub": "user-123",
		"iss": testutil.TestIssuer,
		"aud": "whatever",
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	if _, err := verifier.ParseAndVerifyToken(token); err != nil {
		t.Errorf("Expected aud to be ignored without a configured audience, got %v", err)
	}
}

func TestParseAndVerifyToken_WrongKey(t *testing.T) {
	verifier, _ := testutil.CreateTestVerifier(t)
	otherKey, _ := testutil.GenerateTestKeyPair(t)

	token := testutil.GenerateDoctorToken(t, otherKey, "user-123")
	if _, err := verifier.ParseAndVerifyToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong signing key, got %v", err)
	}
}
