package domain

import "errors"

// Fatal error classes. Callers wrap these with %w so the top level can
// classify a failure while keeping the underlying cause in the message.
var (
	// ErrCredentialRetrieval means the secret store lookup failed. No
	// network activity has happened when this is returned.
	ErrCredentialRetrieval = errors.New("credential retrieval failed")

	// ErrLoginFailed means authentication was rejected or the login form
	// could not be driven.
	ErrLoginFailed = errors.New("login failed")

	// ErrNavigationTimeout means the dashboard did not reach a usable
	// state within the configured bound.
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrTableNotFound means no table on the page matched the header
	// heuristic, or the matched table yielded no usable rows.
	ErrTableNotFound = errors.New("follow-ups table not found")

	// ErrPersistence means a stored-procedure call failed.
	ErrPersistence = errors.New("persistence failed")
)
