package session

import "errors"

var (
	// ErrSubmitInProgress is returned when Submit is called while another submit runs
	ErrSubmitInProgress = errors.New("submit already in progress")

	// ErrClosed is returned by operations on a closed controller
	ErrClosed = errors.New("session closed")
)
