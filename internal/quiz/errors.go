package quiz

import "errors"

var (
	// ErrNotFound covers both an absent quiz and an absent attempt/answer row.
	ErrNotFound = errors.New("not found")
	// ErrNotPublished is fatal to a taking session at load time.
	ErrNotPublished = errors.New("quiz not published")
	// ErrPasswordMismatch is recoverable: the gate re-prompts.
	ErrPasswordMismatch = errors.New("wrong quiz password")
	// ErrValidation marks recoverable input errors surfaced inline.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when a caller mutates a quiz it does not own.
	ErrForbidden = errors.New("forbidden")
)
