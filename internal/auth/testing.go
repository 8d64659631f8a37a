package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"time"
)

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS builds a JWKS preloaded with a single public key under the
// kid "test-key-id". It performs no HTTP fetches and no refresh loop.
func NewTestJWKS(pub *rsa.PublicKey) *JWKS {
	return &JWKS{
		client: &http.Client{Timeout: time.Second},
		keys:   map[string]*rsa.PublicKey{"test-key-id": pub},
		quit:   make(chan struct{}),
	}
}
