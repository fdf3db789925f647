package service

import "errors"

// Caller-facing error taxonomy. Denied reads and writes are reported as
// ErrNotFound so an unauthorized caller cannot probe whether a record
// exists; the real reason is still audited internally. Approval
// transitions are the exception: the caller already proved the record
// exists by holding its ID in their own approval list, so a denial there
// is explicit.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDenied     = errors.New("permission denied")
	ErrValidation = errors.New("validation failed")
)
