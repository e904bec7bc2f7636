package domain

import "fmt"

// Error types for consistent error handling across the router.

// ErrCompletionUnavailable indicates the completion service failed, timed out
// or could not be reached. Components always recover from it with a fallback.
type ErrCompletionUnavailable struct {
	Provider string
	Err      error
}

func (e *ErrCompletionUnavailable) Error() string {
	return fmt.Sprintf("completion unavailable [%s]: %v", e.Provider, e.Err)
}

func (e *ErrCompletionUnavailable) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrMalformedCompletion indicates the completion succeeded but its output
// could not be parsed into the expected structure.
type ErrMalformedCompletion struct {
	Reason string
	Err    error
}

func (e *ErrMalformedCompletion) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed completion output: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed completion output: %s", e.Reason)
}

func (e *ErrMalformedCompletion) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrAnalysis indicates the expenditure data could not be aggregated.
type ErrAnalysis struct {
	Reason string
}

func (e *ErrAnalysis) Error() string {
	return fmt.Sprintf("expenditure analysis failed: %s", e.Reason)
}
