package apperr

import "errors"

var (
	ErrSearchTimeout      = errors.New("search timed out")
	ErrSearchFailed       = errors.New("search failed")
	ErrExecutableNotFound = errors.New("search executable not found")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
)
