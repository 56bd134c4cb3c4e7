package types

import "errors"

// Validation errors
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrEmptyID         = errors.New("id cannot be empty")
	ErrEmptyIDSet      = errors.New("id set cannot be empty")
	ErrSelfLoop        = errors.New("relationship head and tail must differ")
	ErrBadConfidence   = errors.New("confidence must be in [0,1]")
	ErrBadThreshold    = errors.New("threshold must be in [0,1]")
	ErrBadDepth        = errors.New("depth must be positive")
	ErrNegativeDepth   = errors.New("depth cannot be negative")
	ErrBadLimit        = errors.New("limit must be positive")
	ErrBadEmbeddingDim = errors.New("summary embedding must have 384 dimensions")
)

// Operational errors. Callers should match these with errors.Is: every
// engine operation wraps one of them when it fails.
var (
	// ErrInvalidArgument is returned for malformed input, before any store
	// access happens. Distinct from "nothing found", which is a valid empty
	// result and never an error.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is used by store lookups for missing single rows. Traversal
	// operations do not return it; they return empty results instead.
	ErrNotFound = errors.New("not found")

	// ErrResourceExhausted is returned when a traversal exceeds its explored
	// node/edge cap. Results are never silently truncated.
	ErrResourceExhausted = errors.New("traversal cap exceeded")

	// ErrConstraintViolation is returned by the store layer for self-loops
	// and duplicate (head, tail, relation type) triples.
	ErrConstraintViolation = errors.New("constraint violation")
)
