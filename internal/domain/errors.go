package domain

import "errors"

// Error kinds the search path distinguishes. ErrModelUnavailable and
// ErrIndexUnavailable are absorbed by callers (search degrades to empty
// results, writes skip the embedding side effect). ErrDimensionMismatch is
// deliberately loud: it means stored vectors and the current model disagree
// and reconciliation alone cannot repair that.
var (
	ErrModelUnavailable  = errors.New("embedding model unavailable")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrMalformedOutput   = errors.New("malformed generation output")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrNotFound          = errors.New("book not found")
)
