package services

import (
	"errors"
	"fmt"
)

// Failure kinds. Callers classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failure")
	ErrPersistence       = errors.New("persistence failure")
	ErrUpload            = errors.New("upload failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLocked            = errors.New("account locked")
	ErrForbidden         = errors.New("forbidden")
)

// ServiceError pairs a failure kind with a human-readable reason
type ServiceError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newServiceError(kind error, cause error, format string, args ...interface{}) error {
	return &ServiceError{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: cause}
}

func notFound(format string, args ...interface{}) error {
	return newServiceError(ErrNotFound, nil, format, args...)
}

func invalidTransition(format string, args ...interface{}) error {
	return newServiceError(ErrInvalidTransition, nil, format, args...)
}

func validationFailure(format string, args ...interface{}) error {
	return newServiceError(ErrValidation, nil, format, args...)
}

func persistenceFailure(err error, format string, args ...interface{}) error {
	return newServiceError(ErrPersistence, err, format, args...)
}

// Reason returns the readable reason of a service error, or fallback for
// anything unexpected so store internals never leak to clients.
func Reason(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Reason
	}
	return fallback
}
