package sync

import "errors"

var (
	// ErrOffline indicates that a sync was requested without connectivity
	ErrOffline = errors.New("offline")

	// ErrNothingToSync indicates that the queue was empty
	ErrNothingToSync = errors.New("nothing to sync")

	// ErrSyncInProgress indicates that another drain cycle is running
	ErrSyncInProgress = errors.New("sync already in progress")
)
