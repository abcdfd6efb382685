package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrMemoryNotFound        = errors.New("memory not found")
	ErrContradictionNotFound = errors.New("contradiction not found")
	ErrWeightVersionNotFound = errors.New("weight version not found")

	ErrAlreadyResolved = errors.New("contradiction already resolved")
	// ErrWeightTransition rejects activating a rejected version or rejecting
	// one that is not proposed.
	ErrWeightTransition = errors.New("invalid weight version transition")
)

// ValidationError rejects a malformed event before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
