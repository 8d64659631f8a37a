package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const TestIssuer = "https://test-keycloak.com/realms/medtrack"

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a valid signed token with the given subject and realm roles
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key-id"

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateDoctorToken creates a doctor token for testing
func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, []string{"doktor"})
}

// GeneratePatientToken creates a patient token for testing
func GeneratePatientToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, []string{"hasta"})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
