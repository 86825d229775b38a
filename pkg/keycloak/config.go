package keycloak

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// HTTPClient abstracts the HTTP client used for fetching the provider's
// key set. This allows callers to provide custom clients with specific
// transport settings (mTLS, proxies, request tracing).
//
// The standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the Keycloak connection settings for token verification.
//
// JWKSURL and Issuer may be left empty, in which case they are derived
// from ServerURL and Realm following Keycloak's URL layout:
//
//	JWKSURL = <server>/realms/<realm>/protocol/openid-connect/certs
//	Issuer  = <server>/realms/<realm>
type Config struct {
	// ServerURL is the base URL of the Keycloak server
	// (e.g., "https://auth.example.org/"). Required unless both
	// JWKSURL and Issuer are set explicitly.
	ServerURL string `json:"server_url" yaml:"server_url" env:"SERVER_URL"`

	// Realm is the Keycloak realm the platform authenticates against.
	Realm string `json:"realm" yaml:"realm" env:"REALM" envDefault:"tosca"`

	// ClientID is this service's own client identifier. It is used for
	// building logout URLs, not for token verification.
	ClientID string `json:"client_id" yaml:"client_id" env:"CLIENT_ID" envDefault:"tosca-api"`

	// JWKSURL is the key-set endpoint. Derived from ServerURL and
	// Realm when empty.
	JWKSURL string `json:"jwks_url,omitempty" yaml:"jwks_url" env:"JWKS_URL"`

	// Issuer is the exact expected "iss" claim. Derived from ServerURL
	// and Realm when empty.
	Issuer string `json:"issuer,omitempty" yaml:"issuer" env:"ISSUER"`

	// AllowedAudiences is the audience allow-list. A token is accepted
	// when its "aud" claim intersects this list, or — when "aud" is
	// absent or disjoint — when its "azp" claim is a member of this
	// same list.
	AllowedAudiences []string `json:"allowed_audiences" yaml:"allowed_audiences" env:"ALLOWED_AUDIENCES" envDefault:"tosca-api,geoserver,account"`

	// AllowedClients is the list of client identifiers permitted to
	// initiate browser logins. It is consumed by the surrounding
	// framework, not by the verifier.
	AllowedClients []string `json:"allowed_clients" yaml:"allowed_clients" env:"ALLOWED_CLIENTS" envDefault:"tosca-api,geoserver,tosca-web"`

	// FetchTimeout bounds a single key-set fetch. On timeout the
	// verifier fails with [tcerr.CodeAuthenticationUnreachable] rather
	// than hanging the request.
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" env:"FETCH_TIMEOUT" envDefault:"10s"`

	// KeyRefreshInterval is how long cached signing keys are trusted
	// before a background refresh. A key-id miss always triggers an
	// immediate refresh regardless of this interval, so rotated keys
	// become usable without waiting for expiry.
	KeyRefreshInterval time.Duration `json:"key_refresh_interval" yaml:"key_refresh_interval" env:"KEY_REFRESH_INTERVAL" envDefault:"1h"`

	// ClockSkew is the leeway applied to exp/nbf checks.
	ClockSkew time.Duration `json:"clock_skew" yaml:"clock_skew" env:"CLOCK_SKEW" envDefault:"30s"`

	// HTTPClient is used for key-set fetches. If nil, a default client
	// with FetchTimeout is used.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with defaults matching a standard
// TOSCA deployment. ServerURL must still be provided.
func DefaultConfig() Config {
	return Config{
		Realm:              "tosca",
		ClientID:           "tosca-api",
		AllowedAudiences:   []string{"tosca-api", "geoserver", "account"},
		AllowedClients:     []string{"tosca-api", "geoserver", "tosca-web"},
		FetchTimeout:       10 * time.Second,
		KeyRefreshInterval: time.Hour,
		ClockSkew:          30 * time.Second,
	}
}

// realmBase returns "<server>/realms/<realm>" without a trailing slash.
func (c *Config) realmBase() string {
	return strings.TrimRight(c.ServerURL, "/") + "/realms/" + c.Realm
}

// applyDerived fills JWKSURL and Issuer from ServerURL and Realm when
// they were not set explicitly.
func (c *Config) applyDerived() {
	if c.JWKSURL == "" && c.ServerURL != "" {
		c.JWKSURL = c.realmBase() + "/protocol/openid-connect/certs"
	}
	if c.Issuer == "" && c.ServerURL != "" {
		c.Issuer = c.realmBase()
	}
}

// LogoutURL returns the Keycloak end-session URL that logs the browser
// out of the realm and redirects back to the given URI.
func (c *Config) LogoutURL(postLogoutRedirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.ClientID)
	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	return c.realmBase() + "/protocol/openid-connect/logout?" + q.Encode()
}

// Validate checks the configuration for logical correctness.
//
// Rules:
//   - JWKSURL and Issuer must be resolvable (explicitly or derived)
//   - AllowedAudiences must not be empty
//   - FetchTimeout and KeyRefreshInterval must be positive
//   - ClockSkew must be non-negative
func (c *Config) Validate() error {
	c.applyDerived()

	if c.JWKSURL == "" {
		return tcerr.New(tcerr.CodeValidationRequired,
			"keycloak: JWKS URL is empty; set ServerURL and Realm or JWKSURL explicitly")
	}
	if c.Issuer == "" {
		return tcerr.New(tcerr.CodeValidationRequired,
			"keycloak: issuer is empty; set ServerURL and Realm or Issuer explicitly")
	}
	if len(c.AllowedAudiences) == 0 {
		return tcerr.New(tcerr.CodeValidation,
			"keycloak: allowed audience list must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return tcerr.New(tcerr.CodeValidation,
			"keycloak: fetch timeout must be positive")
	}
	if c.KeyRefreshInterval <= 0 {
		return tcerr.New(tcerr.CodeValidation,
			"keycloak: key refresh interval must be positive")
	}
	if c.ClockSkew < 0 {
		return tcerr.New(tcerr.CodeValidation,
			"keycloak: clock skew must be non-negative")
	}

	return nil
}
