package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrNoSession is a precondition failure: the operation needs a bearer token
// and the session has none. It is never retried.
type ErrNoSession struct {
	Operation string
}

func (e *ErrNoSession) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: not logged in, please log in to continue", e.Operation)
	}
	return "not logged in, please log in to continue"
}

// ErrUnauthorized indicates the remote rejected the credentials (401/403)
// or the credentials could not be refreshed.
type ErrUnauthorized struct {
	Status  int
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}

// ErrRemote is a remote validation or processing failure (any other non-2xx).
// Detail carries the server-provided text when there was one.
type ErrRemote struct {
	Service string
	Status  int
	Detail  string
}

func (e *ErrRemote) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed (status %d): %s", e.Service, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s failed (status %d)", e.Service, e.Status)
}

// UserMessage is the text shown to the user: the server detail when present,
// a generic message otherwise.
func (e *ErrRemote) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "Something went wrong while processing your request. Please try again."
}

// ErrNetwork indicates a transport failure: the remote was never reached or
// the connection broke before a response arrived.
type ErrNetwork struct {
	Service string
	Err     error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error [%s]: %v", e.Service, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrMalformedResponse indicates a payload that failed schema validation at
// the network boundary.
type ErrMalformedResponse struct {
	Service string
	Err     error
}

func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Service, e.Err)
}

func (e *ErrMalformedResponse) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrContractCall wraps a failed loan contract interaction.
type ErrContractCall struct {
	Method string
	Err    error
}

func (e *ErrContractCall) Error() string {
	return fmt.Sprintf("contract call %s failed: %v", e.Method, e.Err)
}

func (e *ErrContractCall) Unwrap() error {
	return e.Err
}

// ErrInvalidTransition is returned when a session is asked to move to a state
// its current state cannot reach.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid session transition: %s -> %s", e.From, e.To)
}

// ErrUnavailable indicates an optional subsystem is not configured.
type ErrUnavailable struct {
	Component string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Component)
}

// ErrorKind names the failure class of err for metrics, logs and step
// failures.
func ErrorKind(err error) string {
	var (
		noSession    *ErrNoSession
		unauthorized *ErrUnauthorized
		remote       *ErrRemote
		timeout      *ErrTimeout
		network      *ErrNetwork
		circuit      *ErrCircuitOpen
		malformed    *ErrMalformedResponse
		validation   *ErrValidation
		contract     *ErrContractCall
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noSession):
		return "no_session"
	case errors.As(err, &unauthorized):
		return "unauthorized"
	case errors.As(err, &remote):
		return "remote"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &network):
		return "network"
	case errors.As(err, &circuit):
		return "circuit_open"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &contract):
		return "contract"
	default:
		return "unknown"
	}
}

// UserMessage returns the text a user should see for err.
func UserMessage(err error) string {
	var (
		noSession *ErrNoSession
		remote    *ErrRemote
		network   *ErrNetwork
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noSession):
		return "Please log in to continue."
	case errors.As(err, &remote):
		return remote.UserMessage()
	case errors.As(err, &network):
		return "Network error. Please check your connection and try again."
	default:
		return err.Error()
	}
}
