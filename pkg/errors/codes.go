package errors

// Code is a machine-readable error code. Codes follow the pattern
// CATEGORY_XXX where CATEGORY is a short identifier (e.g., AUTH, CONF)
// and XXX is a three-digit numeric code.
//
// Codes are designed to be:
//   - Stable: a code never changes meaning once assigned
//   - Unique: each failure condition has a distinct code
//   - Machine-readable: suitable for automated handling and alerting
type Code string

// Error code categories and their HTTP mappings:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	AUTH_xxx    - Authentication errors (401 Unauthorized)
//	AUTHZ_xxx   - Authorization errors (403 Forbidden)
//	NF_xxx      - Not found errors (404 Not Found)
//	CONF_xxx    - Conflict errors (409 Conflict)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Service unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// Validation errors (VAL_xxx) - HTTP 400

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// Authentication errors (AUTH_xxx) - HTTP 401
	// One code per token verification failure kind, so callers can log
	// and audit the precise reason while the HTTP layer renders them
	// all as 401.

	// CodeAuthentication indicates a general authentication failure.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the token's exp claim is in
	// the past.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationMalformed indicates the token could not be
	// decoded at all (bad structure, unsupported algorithm, missing
	// segments).
	CodeAuthenticationMalformed Code = "AUTH_003"

	// CodeAuthenticationSignature indicates the token signature did not
	// verify against the resolved key, or verification failed for a
	// reason that must not be disclosed to the caller.
	CodeAuthenticationSignature Code = "AUTH_004"

	// CodeAuthenticationIssuer indicates the token's iss claim does not
	// match the configured issuer.
	CodeAuthenticationIssuer Code = "AUTH_005"

	// CodeAuthenticationAudience indicates neither the token's aud
	// claim nor its azp fallback is in the allowed-audience list.
	CodeAuthenticationAudience Code = "AUTH_006"

	// CodeAuthenticationUnreachable indicates the identity provider's
	// key set could not be fetched (network failure, timeout, bad
	// response).
	CodeAuthenticationUnreachable Code = "AUTH_007"

	// CodeIdentityResolution indicates an external login could not be
	// resolved to a local account (no username hint and no match).
	CodeIdentityResolution Code = "AUTH_008"

	// Authorization errors (AUTHZ_xxx) - HTTP 403

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeAuthorizationDenied indicates the authenticated account lacks
	// the staff or superuser flag required for the operation.
	CodeAuthorizationDenied Code = "AUTHZ_002"

	// Not found errors (NF_xxx) - HTTP 404

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundAccount indicates the requested account was not found.
	CodeNotFoundAccount Code = "NF_002"

	// Conflict errors (CONF_xxx) - HTTP 409

	// CodeConflict indicates a general conflict error.
	CodeConflict Code = "CONF_001"

	// CodeConflictAlreadyExists indicates the resource already exists,
	// e.g. a concurrent create raced on the unique username.
	CodeConflictAlreadyExists Code = "CONF_002"

	// CodeConflictAmbiguousEmail indicates more than one account shares
	// the email an external login tried to match. The resolver never
	// auto-links on this condition.
	CodeConflictAmbiguousEmail Code = "CONF_003"

	// Internal errors (INT_xxx) - HTTP 500

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a database operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeInternalConfiguration indicates a configuration error.
	CodeInternalConfiguration Code = "INT_003"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependent service
	// (database, cache) is unavailable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a database operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"

	// CodeTimeoutDependency indicates a call to a dependent service
	// timed out.
	CodeTimeoutDependency Code = "TIMEOUT_003"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "VAL",
// "AUTH").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
