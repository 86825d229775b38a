// Package fixtures provides shared test data constants for the TOSCA
// identity core test suite.
//
// Using common constants for test identities prevents magic strings in
// tests and keeps packages consistent with each other.
package fixtures

// Standard identity values used in token and resolution tests.
const (
	// TestSubject is the default Keycloak subject claim for tests.
	TestSubject = "f3b0c1d2-0000-0000-0000-000000000001"

	// TestIssuer is the default realm issuer for tests.
	TestIssuer = "https://auth.test/realms/tosca"

	// TestAudience is the default audience claim for tests.
	TestAudience = "tosca-api"

	// TestUsername is the default preferred_username claim for tests.
	TestUsername = "mrossi"

	// TestEmail is the default email claim for tests.
	TestEmail = "m.rossi@example.org"

	// AltSubject is an alternative subject for tests needing two users.
	AltSubject = "f3b0c1d2-0000-0000-0000-000000000002"

	// AltUsername is an alternative username for tests needing two users.
	AltUsername = "mbianchi"
)

// Standard configuration values used in config loader tests.
const (
	// TestEnvPrefix is the default environment variable prefix for
	// config tests.
	TestEnvPrefix = "TOSCA"

	// TestConfigYAML is a minimal valid YAML configuration for tests.
	TestConfigYAML = `server_url: https://auth.test
realm: tosca
client_id: tosca-api
`
)
