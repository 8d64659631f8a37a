package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrUnknownKeyID is returned when a token's kid is absent from the key set
// even after a forced refresh.
var ErrUnknownKeyID = errors.New("jwks: key not found")

const defaultRefreshInterval = 15 * time.Minute

type jwkEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS holds the RSA public keys published by the identity provider,
// indexed by kid. Keys are reloaded periodically and on cache miss, so a
// realm key rotation does not require a restart.
type JWKS struct {
	url    string
	client *http.Client

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey

	ticker *time.Ticker
	quit   chan struct{}
}

// NewJWKS fetches the key set from url and starts a background refresh.
// A refreshInterval of zero or less selects the 15 minute default.
func NewJWKS(url string, refreshInterval time.Duration) (*JWKS, error) {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	j := &JWKS{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   map[string]*rsa.PublicKey{},
		ticker: time.NewTicker(refreshInterval),
		quit:   make(chan struct{}),
	}
	if err := j.refresh(); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}

	go func() {
		for {
			select {
			case <-j.ticker.C:
				if err := j.refresh(); err != nil {
					log.Printf("JWKS refresh failed: %v", err)
				}
			case <-j.quit:
				return
			}
		}
	}()

	return j, nil
}

// Close stops the background refresh loop.
func (j *JWKS) Close() {
	close(j.quit)
	if j.ticker != nil {
		j.ticker.Stop()
	}
}

// Get returns the public key for kid. A miss triggers one synchronous
// refresh before giving up, which covers keys rotated in since the last
// periodic reload.
func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	key := j.keys[kid]
	j.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	if err := j.refresh(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if key = j.keys[kid]; key == nil {
		return nil, ErrUnknownKeyID
	}
	return key, nil
}

func (j *JWKS) refresh() error {
	resp, err := j.client.Get(j.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Keys []jwkEntry `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	fresh := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, entry := range payload.Keys {
		if entry.Kty != "RSA" {
			continue
		}
		pub, err := entry.publicKey()
		if err != nil {
			log.Printf("Skipping unparseable JWKS entry %s: %v", entry.Kid, err)
			continue
		}
		fresh[entry.Kid] = pub
	}

	j.mu.Lock()
	j.keys = fresh
	j.mu.Unlock()
	return nil
}

func (e jwkEntry) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(e.N)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e.E)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
