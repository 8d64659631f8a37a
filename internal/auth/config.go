package auth

import "os"

// Config holds token verification settings.
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

// Defaults point at the local Keycloak realm used in development.
var (
	DefaultIssuer  = "http://localhost:8081/realms/medtrack"
	DefaultJWKSURL = "http://localhost:8081/realms/medtrack/protocol/openid-connect/certs"
)

// LoadConfig reads AUTH_ISSUER, AUTH_JWKS_URL and AUTH_AUD from the
// environment. The audience is optional; when empty the aud claim is not
// checked.
func LoadConfig() Config {
	return Config{
		Issuer:   envOr("AUTH_ISSUER", DefaultIssuer),
		JWKSURL:  envOr("AUTH_JWKS_URL", DefaultJWKSURL),
		Audience: os.Getenv("AUTH_AUD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
