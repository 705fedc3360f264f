package storage

import (
	"context"

	"github.com/iudanet/yardsync/internal/models"
)

//go:generate moq -out submission_mock.go . SubmissionStorage

// SubmissionStorage keeps the forms accepted by the collector
type SubmissionStorage interface {
	// SaveSubmission stores an accepted form.
	// Returns ErrDuplicateSubmission if a submission with the same id exists
	SaveSubmission(ctx context.Context, sub *models.StoredSubmission) error

	// GetSubmission returns the submission with the given id
	// Returns ErrSubmissionNotFound if there is none
	GetSubmission(ctx context.Context, id string) (*models.StoredSubmission, error)

	// ListSubmissions returns submissions of kind (all kinds when empty), newest first.
	// limit <= 0 means no limit
	ListSubmissions(ctx context.Context, kind models.FormKind, limit int) ([]*models.StoredSubmission, error)

	// CountByKind returns the number of stored submissions per form kind
	CountByKind(ctx context.Context) (map[models.FormKind]int, error)
}
