package domain

import "errors"

// Error kinds surfaced by task operations. Callers match with errors.Is.
var (
	ErrNotFound     = errors.New("task not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrPersistence  = errors.New("persistence failure")

	// Text generation errors
	ErrGeneration = errors.New("text generation failed")
)
