package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NotFoundf builds an AppError wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf(format, args...), ErrNotFound)
}

// Validationf builds an AppError wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return NewAppError("VALIDATION_ERROR", fmt.Sprintf(format, args...), ErrValidation)
}

// DatabaseError wraps a driver error so callers can test for ErrDatabase.
func DatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError("DB_ERROR", op, errors.Join(ErrDatabase, err))
}

// ToStatus maps application errors onto gRPC status codes.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok {
		return s
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrConflict):
		return status.New(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrDatabase):
		return status.New(codes.Unavailable, err.Error())
	default:
		return status.New(codes.Internal, err.Error())
	}
}

// ExitCode turns an error into a process exit code for the CLI.
func ExitCode(err error) int {
	switch ToStatus(err).Code() {
	case codes.OK:
		return 0
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		return 2
	default:
		return 1
	}
}
