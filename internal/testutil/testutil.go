// Package testutil provides shared test helpers for the TOSCA identity
// core.
//
// All helpers accept [testing.TB] for compatibility with both tests and
// benchmarks, and call t.Helper() so failure messages report the
// caller's file and line.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// RequireErrorCode halts the test if err is nil, is not a
// *tcerr.Error, or does not carry the expected error code. This is the
// primary helper for validating platform error responses.
//
//	err := verifier.Verify(ctx, raw)
//	testutil.RequireErrorCode(t, err, tcerr.CodeAuthenticationExpired)
func RequireErrorCode(t testing.TB, err error, code tcerr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	tErr, ok := tcerr.AsError(err)
	require.True(t, ok, "expected *tcerr.Error, got %T: %v", err, err)
	require.Equal(t, code, tErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		tErr.Code, code, tErr.Message)
}

// AssertErrorCode records a test failure (without halting) if err does
// not carry the expected error code. Use in table-driven tests where
// all rows should be checked.
func AssertErrorCode(t testing.TB, err error, code tcerr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	tErr, ok := tcerr.AsError(err)
	if !assert.True(t, ok, "expected *tcerr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, tErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		tErr.Code, code, tErr.Message)
}

// TempConfigFile creates a temporary file with the given content and
// extension (".yaml", ".json") inside t.TempDir(). The file is removed
// when the test finishes.
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config"+ext)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp config file %s", path)
	return path
}

// SetEnv sets an environment variable and registers a cleanup that
// restores the original value (or unsets it) when the test completes.
//
// Safe for parallel tests only when each test uses unique variables.
func SetEnv(t testing.TB, key, value string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	err := os.Setenv(key, value)
	require.NoError(t, err, "failed to set env var %s", key)
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// UnsetEnv unsets an environment variable and registers a cleanup that
// restores the original value when the test completes.
func UnsetEnv(t testing.TB, key string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	err := os.Unsetenv(key)
	require.NoError(t, err, "failed to unset env var %s", key)
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, prev)
		}
	})
}
