// Package errors provides structured error types shared by every tosca-core
// package. It defines stable machine-readable error codes, constructors for
// creating and wrapping errors, and predicates for inspecting them.
//
// # Error Categories
//
// Codes are grouped into categories that map directly to failure scenarios
// seen at the platform boundary:
//
//   - Validation errors: invalid input, missing required fields
//   - Authentication errors: token verification failures (expired, bad
//     signature, wrong issuer or audience, provider unreachable)
//   - Authorization errors: insufficient privileges
//   - NotFound errors: resource does not exist
//   - Conflict errors: duplicate account, ambiguous email match
//   - Internal errors: unexpected system failures
//   - Unavailable errors: dependency temporarily unavailable
//   - Timeout errors: operation exceeded its time limit
//
// # Error Codes
//
// Every error carries a code of the form CATEGORY_XXX (e.g., "AUTH_002").
// Codes are stable once assigned and are the contract between the identity
// core and the HTTP layer: [Error.HTTPStatus] derives the response status
// from the code category, so a token verification failure always renders
// as 401 regardless of which internal path produced it.
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.CodeAuthenticationAudience, "token audience is not allowed")
//
// Wrap an underlying cause:
//
//	err := errors.Wrap(err, errors.CodeInternalDatabase, "failed to load account")
//
// Inspect:
//
//	if errors.IsAuthentication(err) {
//	    // render 401
//	}
package errors
