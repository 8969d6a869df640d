package services

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every social-core service. Handlers match these
// with errors.Is and never leak which one applied to a hidden party.
var (
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid report status transition")
	// ErrAlreadyInState is reserved for strict toggles. Block, follow, like
	// and save are idempotent and never return it.
	ErrAlreadyInState    = errors.New("already in requested state")
	ErrForbidden         = errors.New("forbidden")
	ErrDependencyFailure = errors.New("dependency failure")
)

var (
	ErrSelfBlock      = fmt.Errorf("cannot block yourself: %w", ErrInvalidOperation)
	ErrSelfFollow     = fmt.Errorf("cannot follow yourself: %w", ErrInvalidOperation)
	ErrSelfReport     = fmt.Errorf("cannot report yourself: %w", ErrInvalidOperation)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrPostNotFound   = fmt.Errorf("post %w", ErrNotFound)
	ErrReportNotFound = fmt.Errorf("report %w", ErrNotFound)
	ErrInvalidAction  = fmt.Errorf("unknown moderation action: %w", ErrInvalidOperation)
	ErrAdminRequired  = fmt.Errorf("admin role required: %w", ErrForbidden)
)

// DependencyFailure wraps an error from an external collaborator (account
// store, delivery sink) that happened during a side effect.
type DependencyFailure struct {
	Dependency string
	Op         string
	Err        error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Dependency, e.Op, e.Err)
}

func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

func (e *DependencyFailure) Is(target error) bool {
	return target == ErrDependencyFailure
}
