package errors

import (
	"fmt"
	"maps"
)

// ErrorCode represents a Shelf error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrMalformedData     ErrorCode = "MALFORMED_DATA"      // 422
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrStorage           ErrorCode = "STORAGE"             // 503
)

// ShelfError represents a structured error with code, status, and details.
type ShelfError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *ShelfError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ShelfError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown folder or profile.
// kind is "folder" or "profile".
func NewNotFound(kind, identifier string) *ShelfError {
	return &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewNameAlreadyExists creates a 409 error for name collisions.
func NewNameAlreadyExists(kind, name string) *ShelfError {
	return &ShelfError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("%s with name %q already exists", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// NewStorage creates a 503 error for a failed load or save of a storage key.
func NewStorage(op, key string, err error) *ShelfError {
	return &ShelfError{
		Code:    ErrStorage,
		Status:  503,
		Message: fmt.Sprintf("storage %s %q failed: %v", op, key, err),
		Details: map[string]any{"op": op, "key": key},
		cause:   err,
	}
}

// NewMalformedData creates a 422 error for a record that could not be decoded.
func NewMalformedData(key string, err error) *ShelfError {
	return &ShelfError{
		Code:    ErrMalformedData,
		Status:  422,
		Message: fmt.Sprintf("malformed data under %q: %v", key, err),
		Details: map[string]any{"key": key},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ShelfError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ShelfError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// WithDetail returns err with key set in its details. A ShelfError is copied so
// the original is left unchanged; any other error is returned as is.
func WithDetail(err error, key string, value any) error {
	sErr, ok := err.(*ShelfError)
	if !ok {
		return err
	}
	cp := *sErr
	cp.Details = make(map[string]any, len(sErr.Details)+1)
	maps.Copy(cp.Details, sErr.Details)
	cp.Details[key] = value
	return &cp
}

// Is checks if an error is a ShelfError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*ShelfError); ok {
		return sErr.Code == code
	}
	return false
}
