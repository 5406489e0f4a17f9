// Package apperror provides domain-specific error types for ruuth.
// These errors carry an HTTP status code and a user-safe message. The Echo
// error handler maps them to appropriate HTTP responses automatically.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for common error types ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "bad_request",
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    "forbidden",
		Message: message,
	}
}

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// NewConfig creates a ConfigError: bad configuration, a missing secret, or
// an unreachable database discovered at startup. Always fatal -- callers
// log it and exit rather than trying to recover.
func NewConfig(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "config_error",
		Message:  "invalid configuration",
		Internal: err,
	}
}

// NewCrypto creates a CryptoError for an Argon2/TOTP library-internal
// failure (as opposed to a normal verification mismatch, which is not an
// error at all). Hashing failures are ERROR-logged by the caller; password
// verification failures are INFO-logged and treated as a failed check.
func NewCrypto(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "crypto_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// NewRender creates a RenderError for a template or image-encoding failure.
func NewRender(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "render_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// errCredentialInvalid is the sentinel behind NewCredentialInvalid.
var errCredentialInvalid = errors.New("invalid credentials")

// NewCredentialInvalid marks a login failure. It is not a real error in
// the apperror.Code sense -- the web dispatcher's login handler checks for
// it with IsCredentialInvalid and redirects to "/?error=true"; it must
// never reach the generic error handler as a 500.
func NewCredentialInvalid() *AppError {
	return &AppError{
		Code:     http.StatusOK,
		Type:     "credential_invalid",
		Message:  "invalid username, password, or passcode",
		Internal: errCredentialInvalid,
	}
}

// IsCredentialInvalid reports whether err is the sentinel produced by
// NewCredentialInvalid.
func IsCredentialInvalid(err error) bool {
	return errors.Is(err, errCredentialInvalid)
}

// IsNotFound reports whether err is an AppError produced by NewNotFound,
// as opposed to a genuine infrastructure failure (NewInternal) that
// happens to occur on the same lookup path. Callers on the credential hot
// path (internal/users.Manager.Validate) use this to decide "username
// genuinely absent" from "database unreachable" -- only the former should
// drive the fake-user fallback; the latter must propagate as a 500.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == "not_found"
	}
	return false
}
