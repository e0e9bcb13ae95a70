package document

import "errors"

// Errors returned by document operations.
var (
	// ErrOffsetOutOfRange indicates a position outside the document.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates a range whose start is after its end.
	ErrRangeInvalid = errors.New("invalid range")
)
