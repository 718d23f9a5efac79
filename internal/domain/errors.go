package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared by services and the HTTP boundary.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoFamily is returned when the caller must belong to a family but does not.
	ErrNoFamily = errors.New("user does not belong to a family")
	// ErrAlreadyInFamily is returned when an account that is already bound tries to create a family.
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	// ErrAlreadyMember is returned when inviting an email that is already a member of the family.
	ErrAlreadyMember = errors.New("already a member of this family")

	ErrInvitationNotPending = errors.New("invitation is no longer valid")
	ErrInvitationExpired    = errors.New("invitation has expired")
	// ErrInvitationConflict is returned when a concurrent request wrote the same pending invitation first.
	ErrInvitationConflict = errors.New("invitation was changed by another request")
	// ErrDeliveryFailed wraps notifier failures. The invitation itself has been saved.
	ErrDeliveryFailed = errors.New("invitation email could not be delivered")
)

// ValidationError lists the problems found in caller input.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns a *ValidationError, or nil when problems is empty.
func NewValidationError(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
