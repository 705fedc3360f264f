package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/yardsync/internal/models"
)

// BackupVersion is the format tag of exported data
const BackupVersion = "1.0"

// Backup is the exported content of the store
type Backup struct {
	ExportDate time.Time            `json:"exportDate"`
	Draft      *models.Draft        `json:"draft"`
	Version    string               `json:"version"`
	Forms      []*models.Submission `json:"forms"`
}

// Export serialises the queue and the draft as indented JSON
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return nil, err
	}
	draft, err := s.loadDraft(ctx, false)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Submission{}
	}

	data, err := json.MarshalIndent(Backup{
		Forms:      list,
		Draft:      draft,
		ExportDate: s.clock.Now(),
		Version:    BackupVersion,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}
	return data, nil
}

// Import replaces the queue (and the draft, when the backup has one) with the
// backup content. The data is fully decoded before anything is written.
func (s *Store) Import(ctx context.Context, data []byte) error {
	var backup struct {
		Draft *models.Draft         `json:"draft"`
		Forms *[]*models.Submission `json:"forms"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&backup); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if backup.Forms == nil {
		return fmt.Errorf("%w: missing forms", ErrInvalidBackup)
	}

	forms := *backup.Forms
	seen := make(map[string]bool, len(forms))
	for i, rec := range forms {
		if rec == nil || rec.ID == "" {
			return fmt.Errorf("%w: form %d has no id", ErrInvalidBackup, i)
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("%w: form %s has unknown kind %q", ErrInvalidBackup, rec.ID, rec.Kind)
		}
		if seen[rec.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidBackup, rec.ID)
		}
		seen[rec.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if overflow := len(forms) - s.maxItems; overflow > 0 {
		s.logger.Warn("backup exceeds queue bound, dropping oldest", "dropped", overflow)
		forms = forms[overflow:]
	}

	if _, err := s.persistQueue(ctx, forms); err != nil {
		return err
	}

	if backup.Draft != nil {
		draft, err := json.Marshal(backup.Draft)
		if err != nil {
			return fmt.Errorf("failed to marshal draft: %w", err)
		}
		if err := s.writeHealing(ctx, KeyDraft, draft, nil); err != nil {
			return err
		}
	}

	s.logger.Info("backup imported", "forms", len(forms), "draft", backup.Draft != nil)
	return nil
}
