package models

import "errors"

var (
	// ErrValidation marks malformed or missing input. It is always raised
	// before the store is touched.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a booking or its status lookup does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps any rejection from the store (network, permission,
	// constraint). Callers may retry the whole operation.
	ErrPersistence = errors.New("persistence error")

	// ErrAuth is returned by the identity provider for bad credentials or
	// unknown/expired sessions.
	ErrAuth = errors.New("authentication failed")

	// ErrInvalidTransition is returned when the requested status change is
	// not allowed from the booking's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateID is returned by the store when an application id is
	// already taken. Submit retries with a freshly generated id.
	ErrDuplicateID = errors.New("duplicate application id")
)
