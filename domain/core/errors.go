package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrStudyNotFound    = fmt.Errorf("%w: study", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)
	ErrScenarioNotFound = fmt.Errorf("%w: scenario", ErrNotFound)

	// Specification errors - raised before any sampling or fitting
	ErrDimensionMismatch   = errors.New("dimension mismatch in model specification")
	ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")
	ErrNegativeVariance    = errors.New("negative variance parameter")
	ErrInsufficientData    = errors.New("insufficient data for estimation")

	// Shape errors on the long table
	ErrUnbalancedPanel = errors.New("unbalanced panel: units observed at different indices")
	ErrDuplicateCell   = errors.New("duplicate (unit, index) cell in long table")
	ErrMissingCell     = errors.New("missing (unit, index) cell in long table")

	// Estimation errors - the optimizer's verdict is final, never retried
	ErrNonConvergence = errors.New("optimizer did not converge")

	// Comparison errors
	ErrComponentNotFound = errors.New("variance component missing from fitted result")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewDimensionError(what string, want, got int) error {
	return fmt.Errorf("%w: %s expects %d, got %d", ErrDimensionMismatch, what, want, got)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewConvergenceError(method string, cause error) error {
	return fmt.Errorf("%w: %s fit: %v", ErrNonConvergence, method, cause)
}

func NewComponentError(component string, result string) error {
	return fmt.Errorf("%w: %q not present in %s", ErrComponentNotFound, component, result)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsSpecError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrNotPositiveDefinite) ||
		errors.Is(err, ErrNegativeVariance)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrUnbalancedPanel) ||
		errors.Is(err, ErrDuplicateCell) ||
		errors.Is(err, ErrMissingCell)
}

func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}
