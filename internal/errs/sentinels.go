// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (stale row version).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates the caller could not be authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied indicates the actor lacks the right, or the annotation was sent.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation marks malformed input rejected before reaching storage.
	ErrValidation = errors.New("validation")

	// ErrInvalidArgument marks a programming-contract violation (nil required argument).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSuggestion indicates accept/reject on an annotation without the suggestion tag.
	ErrNotSuggestion = errors.New("not a suggestion")
)

// Operation families. Every lifecycle failure wraps exactly one of these.
var (
	ErrCannotCreate = errors.New("cannot create annotation")
	ErrCannotUpdate = errors.New("cannot update annotation")
	ErrCannotDelete = errors.New("cannot delete annotation")
	ErrCannotAccept = errors.New("cannot accept suggestion")
	ErrCannotReject = errors.New("cannot reject suggestion")

	// ErrCannotMutate indicates a transition out of a terminal status.
	ErrCannotMutate = errors.New("cannot mutate annotation")
)
