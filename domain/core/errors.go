package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Monomial key errors
	ErrMalformedKey    = errors.New("malformed monomial key")
	ErrInvalidKeyOrder = errors.New("monomial key slots not in canonical order")
	ErrUnknownParam    = errors.New("parameter not declared")

	// Coefficient table errors
	ErrDuplicateMonomial = errors.New("duplicate monomial key")
	ErrLengthMismatch    = errors.New("coefficient sequence length mismatch")

	// Expression errors
	ErrParse           = errors.New("expression parse error")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrUnknownFunction = errors.New("unknown function")

	// Document errors
	ErrModeConflict      = errors.New("direct and function-of-polynomials fields conflict")
	ErrScaleArity        = errors.New("scale array length does not match observable count")
	ErrInvalidScaleMode  = errors.New("per-observable scale array not allowed in function-of-polynomials mode")
	ErrSchemaVersion     = errors.New("unsupported $schema version")
	ErrInvalidDocument   = errors.New("document failed validation")
	ErrUnknownPolynomial = errors.New("polynomial not declared")

	// Persistence errors
	ErrRunNotFound = errors.New("scan run not found")
)

// Error constructors with context
func NewKeyError(text string, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrMalformedKey, text, reason)
}

func NewKeyOrderError(text string) error {
	return fmt.Errorf("%w: %q", ErrInvalidKeyOrder, text)
}

func NewUnknownParamError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

func NewLengthMismatchError(key string, got, want int) error {
	return fmt.Errorf("%w: key %q has %d coefficients, want %d", ErrLengthMismatch, key, got, want)
}

func NewUnknownVariableError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
}

func NewUnknownFunctionError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownFunction, name)
}

// Error checking helpers
func IsKeyError(err error) bool {
	return errors.Is(err, ErrMalformedKey) || errors.Is(err, ErrInvalidKeyOrder)
}
