package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrDuplicateSubmission indicates that a submission with this id was already stored
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrSubmissionNotFound indicates that no submission has the requested id
	ErrSubmissionNotFound = errors.New("submission not found")
)
