package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates a wrong admin password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an external service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNotReady indicates no retrieval handle has been published yet
	ErrNotReady = errors.New("retrieval not ready")

	// ErrModelMismatch indicates a persisted vector index was built with
	// a different embedding model than the one configured
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrNoContent indicates a page yielded no indexable text
	ErrNoContent = errors.New("no indexable content")

	// ErrAlreadyQueued indicates a refresh for the same page is in flight
	ErrAlreadyQueued = errors.New("refresh already queued")

	// ErrQueueClosed indicates the task queue no longer accepts work
	ErrQueueClosed = errors.New("queue closed")
)
