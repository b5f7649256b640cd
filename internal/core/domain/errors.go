package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the configuration failed validation.
	// Runs abort before any traversal when this is returned.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown sink or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunInProgress indicates a run is already executing on this analyzer.
	ErrRunInProgress = errors.New("run in progress")

	// Authentication Errors.

	// ErrAuthRequired indicates no usable credentials or token were found.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Traversal Errors.

	// ErrFolderUnreachable indicates a folder listing failed after retries.
	// The folder's subtree is skipped.
	ErrFolderUnreachable = errors.New("folder unreachable")

	// ErrContentTooLarge indicates a file exceeded the download size cap.
	ErrContentTooLarge = errors.New("content too large")

	// Enrichment Errors.

	// ErrLLMUnavailable indicates no inference service is configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrExtractionFailed indicates the inference call failed after retries.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnparseable indicates the model returned output that is not JSON.
	ErrUnparseable = errors.New("unparseable model output")

	// Sink Errors.

	// ErrSinkUnavailable indicates the sink could not be reached.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
