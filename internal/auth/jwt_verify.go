package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated token.
type Principal struct {
	UserID string
	Roles  []string
	Claims jwt.MapClaims
}

var (
	ErrNoToken         = errors.New("no token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrMissingSub      = errors.New("missing sub claim")
)

// Verifier validates bearer tokens against the realm's JWKS.
type Verifier struct {
	cfg  Config
	jwks *JWKS
}

// NewVerifier constructs a verifier with config and JWKS.
func NewVerifier(cfg Config, jwks *JWKS) *Verifier {
	return &Verifier{cfg: cfg, jwks: jwks}
}

// ParseAndVerifyToken checks signature, issuer, audience (when configured),
// expiry and the sub claim, and returns the principal carried by the token.
// Only RS256 tokens whose kid resolves in the JWKS are accepted.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}

	parsed, err := jwt.Parse(tokenString, v.keyForToken)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	// aud is checked only when an audience is configured.
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	// exp is required, not merely valid-if-present
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	return &Principal{
		UserID: sub,
		Roles:  realmRoles(claims),
		Claims: claims,
	}, nil
}

func (v *Verifier) keyForToken(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, ErrInvalidToken
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrInvalidToken
	}
	return v.jwks.Get(kid)
}

// realmRoles pulls the realm_access.roles claim Keycloak puts on access
// tokens.
func realmRoles(claims jwt.MapClaims) []string {
	ra, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := ra["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
