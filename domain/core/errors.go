package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural errors
	ErrValidation   = errors.New("validation failed")
	ErrCycle        = errors.New("cycle detected")
	ErrNodeNotFound = errors.New("node not found")

	// Catalog errors
	ErrUnknownMotif = errors.New("unknown scm kind")

	// Call errors
	ErrInvalidArgument = errors.New("invalid argument")

	// Build errors
	ErrBuild = errors.New("instance build failed")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

func NewCycleError(node string) error {
	return fmt.Errorf("%w: node %s revisited while in progress", ErrCycle, node)
}

func NewNodeNotFoundError(node string) error {
	return fmt.Errorf("%w: %s", ErrNodeNotFound, node)
}

func NewUnknownMotifError(kinds ...string) error {
	return fmt.Errorf("%w: %v", ErrUnknownMotif, kinds)
}

func NewInvalidArgumentError(arg string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, arg, fmt.Sprintf(format, args...))
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCycle)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUnknownMotif)
}

func IsBuildError(err error) bool {
	return errors.Is(err, ErrBuild)
}
