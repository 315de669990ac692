package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrConflict           = errors.New("order was modified concurrently")
	ErrNoChange           = errors.New("order already in requested status")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrSelfDelete         = errors.New("cannot delete your own account")
)

// ValidationError reports rejected input with a human-readable detail.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func validation(detail string) error {
	return &ValidationError{Detail: detail}
}
