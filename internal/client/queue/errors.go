package queue

import "errors"

var (
	// ErrInvalidBackup indicates that imported data is not a valid backup
	ErrInvalidBackup = errors.New("invalid backup data")

	// ErrWriteAbandoned indicates that a write did not fit into storage even after
	// evicting failed submissions. The user has already been notified.
	ErrWriteAbandoned = errors.New("write abandoned: storage is full")
)
