package app

import "errors"

// ValidationError is a user mistake caught before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	ErrNoFileSelected = &ValidationError{Reason: "no file selected"}
	ErrNotAnImage     = &ValidationError{Reason: "selected file is not an image"}
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrStaleSubmission    = errors.New("submission was superseded by a newer selection")
	ErrImageNotFound      = errors.New("image not found")
)
