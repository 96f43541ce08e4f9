package service

import "errors"

var (
	ErrTooFewShapes        = errors.New("at least 2 shapes are required to form a group")
	ErrShapeAlreadyGrouped = errors.New("shape already belongs to a group")
	ErrGroupEmpty          = errors.New("group is empty")
	ErrDuplicateShapeID    = errors.New("duplicate shape id in request")
)

// ValidationError rejects an operation before any I/O is attempted:
// out-of-bounds geometry, below-minimum sizes, malformed batches.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// PreconditionError rejects an operation based on a fresh read of current
// state, before any write: shape missing, shape already grouped, group
// missing or empty. No partial effect.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
