package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAmbiguousData    = errors.New("ambiguous feature data")
	ErrSchemaMismatch   = errors.New("feature schema does not match model")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInvalidLimit     = errors.New("limit must be positive")
)
