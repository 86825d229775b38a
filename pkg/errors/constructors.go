package errors

import (
	"fmt"
)

// New creates a new Error with the given code and message.
//
// Example:
//
//	err := errors.New(errors.CodeIdentityResolution, "external login carries no username")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeNotFoundAccount, "account %q not found", username)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message. The wrapped
// error becomes the Cause of the new error. If err is nil, Wrap
// returns nil.
//
// Example:
//
//	if err := row.Scan(&acct.ID); err != nil {
//	    return errors.Wrap(err, errors.CodeInternalDatabase, "failed to load account")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message. If err is
// nil, Wrapf returns nil.
//
// Example:
//
//	err := errors.Wrapf(err, errors.CodeAuthenticationUnreachable, "fetching key set from %s", url)
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Validation creates a new validation error, equivalent to
// New(CodeValidation, message).
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound creates a new not found error, equivalent to
// New(CodeNotFound, message).
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a new not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Unauthorized creates a new general authentication error. Use the
// specific AUTH codes when the verification failure kind is known.
func Unauthorized(message string) *Error {
	return New(CodeAuthentication, message)
}

// Forbidden creates a new authorization error, equivalent to
// New(CodeAuthorizationDenied, message).
func Forbidden(message string) *Error {
	return New(CodeAuthorizationDenied, message)
}

// Internal creates a new internal error, equivalent to
// New(CodeInternal, message).
func Internal(message string) *Error {
	return New(CodeInternal, message)
}
