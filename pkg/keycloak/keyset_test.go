package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

func kcTestKeySetConfig(jwksURL string) Config {
	cfg := kcTestConfig(jwksURL)
	cfg.FetchTimeout = 2 * time.Second
	return cfg
}

func TestKeySet_ResolveCachesKeys(t *testing.T) {
	key := kcTestGenerateRSAKey(t)
	fetches := 0
	server := kcTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}, &fetches)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))

	got, err := ks.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.N.Cmp(key.PublicKey.N))

	_, err = ks.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "second resolve should hit the cache")
}

func TestKeySet_RefetchOnUnknownKid(t *testing.T) {
	oldKey := kcTestGenerateRSAKey(t)
	newKey := kcTestGenerateRSAKey(t)

	published := map[string]*rsa.PublicKey{"kid-old": &oldKey.PublicKey}
	fetches := 0
	server := kcTestServeJWKS(t, published, &fetches)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))

	_, err := ks.Resolve(context.Background(), "kid-old")
	require.NoError(t, err)

	// Rotate: the realm now publishes a new key under a new kid.
	published["kid-new"] = &newKey.PublicKey

	got, err := ks.Resolve(context.Background(), "kid-new")
	require.NoError(t, err)
	assert.Equal(t, 0, got.N.Cmp(newKey.PublicKey.N))
	assert.Equal(t, 2, fetches, "unknown kid should force a refetch inside the refresh interval")
}

func TestKeySet_UnknownKidAfterRefetch(t *testing.T) {
	key := kcTestGenerateRSAKey(t)
	server := kcTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}, nil)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))

	_, err := ks.Resolve(context.Background(), "kid-never-published")
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeAuthenticationMalformed, tcerr.GetCode(err))
}

func TestKeySet_StaleKeysServedWhenEndpointDown(t *testing.T) {
	key := kcTestGenerateRSAKey(t)
	server := kcTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}, nil)

	cfg := kcTestKeySetConfig(server.URL)
	cfg.KeyRefreshInterval = time.Millisecond
	ks := NewKeySet(cfg)

	_, err := ks.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)

	server.Close()
	time.Sleep(5 * time.Millisecond)

	// Cache is stale and the endpoint is down; the known key is still served.
	got, err := ks.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.N.Cmp(key.PublicKey.N))
}

func TestKeySet_UnreachableEndpointNoCache(t *testing.T) {
	cfg := kcTestKeySetConfig("http://127.0.0.1:1/certs")
	cfg.FetchTimeout = 200 * time.Millisecond
	ks := NewKeySet(cfg)

	_, err := ks.Resolve(context.Background(), "kid-1")
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeAuthenticationUnreachable, tcerr.GetCode(err))
}

func TestKeySet_Refresh(t *testing.T) {
	key := kcTestGenerateRSAKey(t)
	server := kcTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}, nil)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))
	require.NoError(t, ks.Refresh(context.Background()))
	assert.Equal(t, 1, ks.Len())
}

func TestKeySet_FetchSkipsUnusableKeys(t *testing.T) {
	key := kcTestGenerateRSAKey(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": "kid-sig",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			},
			// Encryption key, skipped.
			{
				"kty": "RSA",
				"kid": "kid-enc",
				"use": "enc",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			},
			// EC key, skipped.
			{"kty": "EC", "kid": "kid-ec", "use": "sig", "crv": "P-256"},
			// Malformed RSA key, skipped.
			{"kty": "RSA", "kid": "kid-bad", "use": "sig", "n": "!!!", "e": "AQAB"},
			// Oversized exponent, skipped.
			{
				"kty": "RSA",
				"kid": "kid-big-exp",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(append([]byte{0x01}, make([]byte, 8)...)),
			},
			// Zero exponent, skipped.
			{
				"kty": "RSA",
				"kid": "kid-zero-exp",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString([]byte{0x00}),
			},
			// No kid, skipped.
			{"kty": "RSA", "use": "sig", "n": "AQAB", "e": "AQAB"},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(server.Close)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))
	require.NoError(t, ks.Refresh(context.Background()))
	assert.Equal(t, 1, ks.Len())

	_, err := ks.Resolve(context.Background(), "kid-sig")
	assert.NoError(t, err)
}

func TestKeySet_BadStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	ks := NewKeySet(kcTestKeySetConfig(server.URL))
	err := ks.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeAuthenticationUnreachable, tcerr.GetCode(err))
}
