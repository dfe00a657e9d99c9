package domain

import "errors"

// Credential and signup errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many failed signin attempts")
)

// Token errors returned by the token validator.
var (
	ErrTokenMissing = errors.New("authentication token is missing")
	ErrTokenExpired = errors.New("authentication token has expired")
	ErrTokenInvalid = errors.New("authentication token is invalid")
)

// ErrForbidden is returned when an authenticated caller lacks a permission.
var ErrForbidden = errors.New("access forbidden")

// ErrRoleCatalogNotSeeded means a canonical role is missing from the role
// store. The process is misconfigured; affected requests fail with a server
// error.
var ErrRoleCatalogNotSeeded = errors.New("role catalog not seeded")

// ErrDependencyUnavailable wraps store or signing failures caused by
// timeouts or unreachable backends. Callers may retry.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrInvalidInput is returned when a required field is empty.
var ErrInvalidInput = errors.New("invalid input")
