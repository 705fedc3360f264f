package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/internal/server/storage"
)

// SaveSubmission stores an accepted form; a second insert with the same id
// changes nothing and reports ErrDuplicateSubmission
func (s *Storage) SaveSubmission(ctx context.Context, sub *models.StoredSubmission) error {
	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO submissions (id, kind, user_id, fields, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		sub.ID,
		string(sub.Kind),
		sub.UserID,
		string(fields),
		sub.ReceivedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrDuplicateSubmission
	}
	return nil
}

// GetSubmission returns the submission with the given id
func (s *Storage) GetSubmission(ctx context.Context, id string) (*models.StoredSubmission, error) {
	query := `
		SELECT id, kind, user_id, fields, received_at
		FROM submissions
		WHERE id = ?
	`

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns submissions of kind, newest first
func (s *Storage) ListSubmissions(ctx context.Context, kind models.FormKind, limit int) ([]*models.StoredSubmission, error) {
	query := `
		SELECT id, kind, user_id, fields, received_at
		FROM submissions
		WHERE (? = '' OR kind = ?)
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`
	// LIMIT -1 в SQLite означает отсутствие ограничения
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*models.StoredSubmission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return subs, nil
}

// CountByKind returns the number of stored submissions per form kind
func (s *Storage) CountByKind(ctx context.Context) (map[models.FormKind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM submissions GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.FormKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.FormKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}

func scanSubmission(row rowScanner) (*models.StoredSubmission, error) {
	var (
		sub        models.StoredSubmission
		kind       string
		fields     string
		receivedAt int64
	)
	if err := row.Scan(&sub.ID, &kind, &sub.UserID, &fields, &receivedAt); err != nil {
		return nil, err
	}

	sub.Kind = models.FormKind(kind)
	sub.ReceivedAt = time.UnixMilli(receivedAt).UTC()
	if err := json.Unmarshal([]byte(fields), &sub.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields of %s: %w", sub.ID, err)
	}
	return &sub, nil
}
