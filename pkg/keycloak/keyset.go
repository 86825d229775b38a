package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// maxJWKSResponseSize limits the key-set response body to prevent
// resource exhaustion from a misbehaving endpoint.
const maxJWKSResponseSize = 1 << 20 // 1 MB

// KeySet caches the realm's RSA signing keys, indexed by key ID (kid).
//
// Keys are fetched from the realm's JWKS endpoint and trusted for the
// configured refresh interval. A lookup for an unknown kid forces an
// immediate re-fetch so that rotated keys become usable without waiting
// for the interval to elapse. When a re-fetch fails, previously cached
// keys are still served; Keycloak keeps retired keys in the published
// set for a grace period, so a stale set remains usable.
//
// KeySet is safe for concurrent use.
type KeySet struct {
	jwksURL         string
	client          HTTPClient
	refreshInterval time.Duration
	fetchTimeout    time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet creates a key-set cache for the given configuration. The
// cache starts empty; the first [KeySet.Resolve] call populates it.
func NewKeySet(cfg Config) *KeySet {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &KeySet{
		jwksURL:         cfg.JWKSURL,
		client:          client,
		refreshInterval: cfg.KeyRefreshInterval,
		fetchTimeout:    cfg.FetchTimeout,
		keys:            make(map[string]*rsa.PublicKey),
	}
}

// Resolve returns the public key for the given key ID. If the cached
// set is fresh and contains the kid, no network round-trip is made.
// Otherwise the key set is re-fetched.
//
// Error codes:
//   - [tcerr.CodeAuthenticationUnreachable] if the endpoint cannot be
//     reached and no cached key matches
//   - [tcerr.CodeAuthenticationMalformed] if the fetched set does not
//     contain the kid (the token references a key the realm does not
//     publish)
func (s *KeySet) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, found := s.keys[kid]
	fresh := !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < s.refreshInterval
	s.mu.RUnlock()

	if found && fresh {
		return key, nil
	}
	// Cache miss or stale entry; either way the set is re-fetched.
	// A miss on a fresh cache can mean key rotation.

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	keys, err := s.fetch(fetchCtx)
	if err != nil {
		if found {
			// Endpoint down but the kid is known from an earlier fetch.
			return key, nil
		}
		return nil, tcerr.Wrapf(err, tcerr.CodeAuthenticationUnreachable,
			"keycloak: failed to fetch signing keys from %s", s.jwksURL)
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	key, found = keys[kid]
	if !found {
		return nil, tcerr.Newf(tcerr.CodeAuthenticationMalformed,
			"keycloak: signing key %q not published by realm", kid)
	}
	return key, nil
}

// Refresh forces an immediate re-fetch of the key set, replacing the
// cached keys on success. Useful at startup to fail fast on a bad
// JWKS URL before serving traffic.
func (s *KeySet) Refresh(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	keys, err := s.fetch(fetchCtx)
	if err != nil {
		return tcerr.Wrapf(err, tcerr.CodeAuthenticationUnreachable,
			"keycloak: failed to fetch signing keys from %s", s.jwksURL)
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached keys.
func (s *KeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// jwksResponse represents the JSON structure of the JWKS endpoint.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single key in a JWKS response. Only the fields
// needed for RSA key reconstruction are included; Keycloak realm keys
// are RSA.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetch makes an HTTP GET request to the JWKS endpoint and constructs
// a map of key ID to RSA public key. Non-RSA and malformed entries are
// skipped; encryption keys (use "enc") are ignored.
func (s *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("keycloak: failed to create JWKS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: JWKS request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keycloak: JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSResponseSize))
	if err != nil {
		return nil, fmt.Errorf("keycloak: failed to read JWKS response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("keycloak: failed to parse JWKS JSON: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue // Skip malformed keys.
		}
		keys[k.Kid] = pubKey
	}
	return keys, nil
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("keycloak: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("keycloak: failed to decode RSA exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if e.Sign() <= 0 || e.BitLen() > 31 {
		return nil, fmt.Errorf("keycloak: RSA exponent out of range")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
