// Package apperr holds the sentinel errors shared across devtally packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUsage         = errors.New("usage")
	ErrValidation    = errors.New("validation failed")
	ErrCorrupt       = errors.New("corrupt document")
	ErrConfiguration = errors.New("configuration error")
)
