package services

import "errors"

// Error taxonomy surfaced by the billing services. Handlers map these to
// HTTP statuses; no service-level retries happen, recomputation is
// idempotent so retrying is always the caller's call.
var (
	// ErrNotFound: a referenced student/group/fee/academic year/obligation
	// does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict: an active obligation already exists for the target
	// (student, fee, academic year, group) key, either caught by the
	// pre-check or by the unique index at insert time.
	ErrConflict = errors.New("obligation already exists")

	// ErrValidation: malformed input, rejected before any persistence.
	ErrValidation = errors.New("invalid input")
)
