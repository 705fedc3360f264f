package session

import "time"

// State is what the presentation layer renders
type State struct {
	LastSyncTime          time.Time
	SubmitError           string
	SuccessMessage        string
	PendingSubmissions    int
	SuccessfulSubmissions int
	IsSubmitting          bool
	IsOnline              bool
	HasUnsavedChanges     bool
	IsSyncing             bool
}

// Outcome tells how a submit ended
type Outcome int

const (
	// NotSubmitted means the form was rejected and nothing was stored
	NotSubmitted Outcome = iota
	// Delivered means the collector accepted the submission
	Delivered
	// Queued means the submission was stored for a later sync because the client was offline
	Queued
	// QueuedAfterFailure means delivery failed and the submission was stored as failed
	QueuedAfterFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	case QueuedAfterFailure:
		return "queued after failure"
	default:
		return "not submitted"
	}
}
