package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchRunning indicates an operation that requires a settled
	// search was attempted while the search is still in flight.
	ErrSearchRunning = errors.New("search still running")

	// ErrEngineUnavailable indicates no search engine is configured.
	ErrEngineUnavailable = errors.New("search engine unavailable")
)
