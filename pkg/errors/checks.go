package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error, traversing the
// error chain with errors.As. Returns the Error and true on success.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error, or the empty string if
// the error is nil or not an *Error.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode checks whether an error carries the given code.
//
// Example:
//
//	if errors.HasCode(err, errors.CodeAuthenticationExpired) {
//	    // token expired; the client should refresh and retry
//	}
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsValidation reports whether the error is a validation error (VAL_xxx).
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "VAL"
}

// IsAuthentication reports whether the error is an authentication error
// (AUTH_xxx). All token verification failure kinds and identity
// resolution failures fall into this category.
func IsAuthentication(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "AUTH"
}

// IsAuthorization reports whether the error is an authorization error
// (AUTHZ_xxx).
func IsAuthorization(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "AUTHZ"
}

// IsNotFound reports whether the error is a not found error (NF_xxx).
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "NF"
}

// IsConflict reports whether the error is a conflict error (CONF_xxx).
// A duplicate-create race on a unique username surfaces as a conflict.
func IsConflict(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "CONF"
}

// IsInternal reports whether the error is an internal error (INT_xxx).
func IsInternal(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "INT"
}

// IsUnavailable reports whether the error is an unavailable error
// (UNAVAIL_xxx).
func IsUnavailable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "UNAVAIL"
}

// IsTimeout reports whether the error is a timeout error (TIMEOUT_xxx).
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "TIMEOUT"
}

// IsRetryable reports whether the operation that produced this error is
// worth retrying. Timeouts and unavailable dependencies are transient;
// everything else (validation, authentication, conflicts) is not.
func IsRetryable(err error) bool {
	return IsTimeout(err) || IsUnavailable(err)
}
