package store

import "errors"

// Sentinel errors surfaced to the coordinator and the HTTP layer. Store
// operations wrap these with %w so callers can match with errors.Is.
var (
	// ErrNotFound reports that the target of an update or delete does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports a malformed payload, such as a content
	// union that does not decode.
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable reports a connection or transaction
	// failure underneath an otherwise well-formed operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
