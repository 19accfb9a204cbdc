package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated: credential missing, expired or not resolvable.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidSample: engagement payload failed validation.
	ErrInvalidSample = errors.New("invalid engagement sample")
	// ErrPersistence wraps every datastore failure.
	ErrPersistence = errors.New("persistence error")

	ErrInvalidLearner    = errors.New("invalid learner reference")
	ErrNotLearner        = errors.New("principal is not a learner")
	ErrMaterialNotFound  = errors.New("material not found")
	ErrConcurrentUpdate  = errors.New("learner modified concurrently, retries exhausted")
	ErrInvalidBadgeEntry = errors.New("invalid badge definition")
)

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}
