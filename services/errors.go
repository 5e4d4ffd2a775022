package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies a ServiceError so the transport layer can pick a response status
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidState
	KindConflict
	KindValidation
	KindReplacementFailed
)

// Kind sentinels for errors.Is checks, e.g. errors.Is(err, ErrForbidden)
var (
	ErrInternal          = &ServiceError{Kind: KindInternal}
	ErrUnauthorized      = &ServiceError{Kind: KindUnauthorized}
	ErrForbidden         = &ServiceError{Kind: KindForbidden}
	ErrNotFound          = &ServiceError{Kind: KindNotFound}
	ErrInvalidState      = &ServiceError{Kind: KindInvalidState}
	ErrConflict          = &ServiceError{Kind: KindConflict}
	ErrValidation        = &ServiceError{Kind: KindValidation}
	ErrReplacementFailed = &ServiceError{Kind: KindReplacementFailed}
)

// Message returned to callers when an image swap could not be completed
const replacementFailedMessage = "Failed to replace image; changes were rolled back"

// ServiceError represents a business rule or infrastructure failure
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError of the same kind
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func unauthorized(message string) error {
	return &ServiceError{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func forbidden(message string) error {
	return &ServiceError{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func notFound(code, message string) error {
	return &ServiceError{Kind: KindNotFound, Code: code, Message: message}
}

func invalidState(code, message string) error {
	return &ServiceError{Kind: KindInvalidState, Code: code, Message: message}
}

func conflict(message string) error {
	return &ServiceError{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

func validation(message string) error {
	return &ServiceError{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message}
}

func internal(code, message string, err error) error {
	return &ServiceError{Kind: KindInternal, Code: code, Message: message, Err: err}
}

func databaseError(message string, err error) error {
	return internal("DATABASE_ERROR", message, err)
}

func replacementFailed(err error) error {
	return &ServiceError{
		Kind:    KindReplacementFailed,
		Code:    "IMAGE_REPLACEMENT_FAILED",
		Message: replacementFailedMessage,
		Err:     err,
	}
}

// lookupError converts a failed First/Take into NotFound or a database error
func lookupError(err error, code, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(code, message)
	}
	return databaseError("Failed to load record", err)
}

// AsServiceError extracts the ServiceError from err, wrapping foreign errors as internal
func AsServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}
