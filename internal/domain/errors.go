package domain

import "errors"

// Common errors
var (
	ErrAssetFileNotFound = errors.New("asset file not found")
	// ErrStorageUnavailable wraps failures of the record or object store. It is
	// never a validation outcome.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrMissingDescription = errors.New("description is required")
)
