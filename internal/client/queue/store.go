// Package queue is the durable local store of the client: the bounded queue of
// undelivered submissions, the single draft slot and sync bookkeeping.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/storage"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/models"
)

// Storage keys owned by the Store
const (
	KeySubmissions = "yardsync/submissions"
	KeyDraft       = "yardsync/draft"
	KeyLastSync    = "yardsync/last_sync"

	keyProbe = "yardsync/__probe"
)

const (
	// DefaultMaxItems is the queue bound; the oldest records are evicted beyond it
	DefaultMaxItems = 50
	// DefaultDraftTTL is the age after which a draft is discarded on read
	DefaultDraftTTL = 7 * 24 * time.Hour
	// largeDraftBytes triggers a warning on draft save
	largeDraftBytes = 1 << 20
)

// Options configures a Store
type Options struct {
	KV       storage.KV
	Clock    clock.Clock
	Notifier notify.Sink
	Logger   *slog.Logger
	MaxItems int
	DraftTTL time.Duration
	// Capacity is the byte budget used for the free space estimate
	Capacity int64
}

// Store is the only component that reads or writes the submission, draft and
// last-sync keys. Every operation holds one mutex for its whole
// read-modify-write.
type Store struct {
	kv       storage.KV
	clock    clock.Clock
	notifier notify.Sink
	logger   *slog.Logger
	maxItems int
	draftTTL time.Duration
	capacity int64
	mu       sync.Mutex
}

// New creates a Store; zero options take their defaults
func New(opts Options) *Store {
	s := &Store{
		kv:       opts.KV,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		maxItems: opts.MaxItems,
		draftTTL: opts.DraftTTL,
		capacity: opts.Capacity,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxItems <= 0 {
		s.maxItems = DefaultMaxItems
	}
	if s.draftTTL <= 0 {
		s.draftTTL = DefaultDraftTTL
	}
	if s.capacity <= 0 {
		s.capacity = storage.DefaultCapacity
	}
	return s
}

// NewID returns a timestamp-derived submission id: form_<unix millis>_<8 hex>
func NewID(t time.Time) string {
	return fmt.Sprintf("form_%d_%s", t.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// SaveSubmission queues payload as a pending submission.
// A payload that already carries an id keeps it and replaces any queued record
// with the same id. A non-nil error means the record was not stored and the
// user has been notified.
func (s *Store) SaveSubmission(ctx context.Context, payload models.Payload) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if payload.ID == "" {
		payload.ID = NewID(now)
	}
	payload.Fields = models.CloneFields(payload.Fields)

	list, err := s.loadQueue(ctx)
	if err != nil {
		s.notifier.Notify(notify.Error, "The form could not be saved locally.")
		return nil, err
	}

	list = without(list, payload.ID)
	rec := &models.Submission{
		Payload: payload,
		SavedAt: now,
		Status:  models.StatusPending,
	}
	list = append(list, rec)

	if overflow := len(list) - s.maxItems; overflow > 0 {
		for _, evicted := range list[:overflow] {
			s.logger.Warn("queue is full, evicting oldest submission",
				"id", evicted.ID, "status", evicted.Status, "saved_at", evicted.SavedAt)
		}
		list = list[overflow:]
	}

	if _, err := s.persistQueue(ctx, list); err != nil {
		return nil, err
	}

	s.logger.Info("submission saved offline", "id", rec.ID, "kind", rec.Kind)
	return rec.Clone(), nil
}

// ListSubmissions returns every queued record in insertion order
func (s *Store) ListSubmissions(ctx context.Context) ([]*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return nil, err
	}
	return cloneAll(list), nil
}

// ListFailed returns the records whose last delivery attempt failed
func (s *Store) ListFailed(ctx context.Context) ([]*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return nil, err
	}

	var failed []*models.Submission
	for _, rec := range list {
		if rec.Status == models.StatusFailed {
			failed = append(failed, rec.Clone())
		}
	}
	return failed, nil
}

// RemoveSubmission deletes the record with id; an absent id is a no-op
func (s *Store) RemoveSubmission(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return err
	}

	kept := without(list, id)
	if len(kept) == len(list) {
		return nil
	}

	if _, err := s.persistQueue(ctx, kept); err != nil {
		return err
	}
	s.logger.Debug("submission removed", "id", id)
	return nil
}

// UpdateStatus sets the status of the record with id.
// StatusFailed also increments attempts and records the time and cause.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return err
	}

	var found bool
	for _, rec := range list {
		if rec.ID != id {
			continue
		}
		found = true
		rec.Status = status
		if status == models.StatusFailed {
			now := s.clock.Now()
			rec.Attempts++
			rec.LastAttempt = &now
			if cause != nil {
				rec.LastError = cause.Error()
			}
		}
	}
	if !found {
		s.logger.Debug("status update for unknown submission", "id", id, "status", status)
		return nil
	}

	_, err = s.persistQueue(ctx, list)
	return err
}

// ResetSyncing returns records stuck in syncing (an interrupted cycle) to pending
func (s *Store) ResetSyncing(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range list {
		if rec.Status == models.StatusSyncing {
			rec.Status = models.StatusPending
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}

	if _, err := s.persistQueue(ctx, list); err != nil {
		return 0, err
	}
	s.logger.Warn("reset interrupted submissions to pending", "count", n)
	return n, nil
}

// ClearFailed removes every failed record and returns how many were removed
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadQueue(ctx)
	if err != nil {
		return 0, err
	}

	kept := list[:0:0]
	for _, rec := range list {
		if rec.Status != models.StatusFailed {
			kept = append(kept, rec)
		}
	}
	removed := len(list) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if _, err := s.persistQueue(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Info("failed submissions cleared", "count", removed)
	return removed, nil
}

// SaveDraft overwrites the draft slot
func (s *Store) SaveDraft(ctx context.Context, kind models.FormKind, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := models.Draft{
		Kind:      kind,
		Fields:    models.CloneFields(fields),
		LastSaved: s.clock.Now(),
		Version:   models.DraftVersion,
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if len(data) > largeDraftBytes {
		s.logger.Warn("draft is large", "bytes", len(data))
	}

	if err := s.writeHealing(ctx, KeyDraft, data, nil); err != nil {
		return err
	}
	s.logger.Debug("draft saved", "kind", kind)
	return nil
}

// GetDraft returns the draft, or nil when there is none. Stale (older than the
// TTL) and unreadable drafts are removed and reported as absent.
func (s *Store) GetDraft(ctx context.Context) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadDraft(ctx, true)
}

// ClearDraft removes the draft
func (s *Store) ClearDraft(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, KeyDraft); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// ClearAll wipes the queue and the draft
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, KeySubmissions); err != nil {
		return fmt.Errorf("failed to clear submissions: %w", err)
	}
	if err := s.kv.Remove(ctx, KeyDraft); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	s.logger.Info("offline data cleared")
	return nil
}

// Stats returns a diagnostic snapshot. Read errors are logged and yield zero values.
func (s *Store) Stats(ctx context.Context) models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st models.Stats

	raw, err := s.kv.Get(ctx, KeySubmissions)
	if err == nil {
		st.ApproximateByteSize += int64(len(raw))
		var list []*models.Submission
		if json.Unmarshal(raw, &list) == nil {
			for _, rec := range list {
				switch rec.Status {
				case models.StatusPending:
					st.PendingCount++
				case models.StatusSyncing:
					st.SyncingCount++
				case models.StatusFailed:
					st.FailedCount++
				}
			}
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		s.logger.Warn("failed to read submissions for stats", "error", err)
	}

	raw, err = s.kv.Get(ctx, KeyDraft)
	if err == nil {
		st.ApproximateByteSize += int64(len(raw))
		st.HasDraft = true
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		s.logger.Warn("failed to read draft for stats", "error", err)
	}

	st.EstimatedFreeBytes = max(s.capacity-st.ApproximateByteSize, 0)
	return st
}

// IsAvailable reports whether the storage accepts writes
func (s *Store) IsAvailable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, keyProbe, []byte("1")); err != nil {
		s.logger.Warn("storage is not writable", "error", err)
		return false
	}
	if err := s.kv.Remove(ctx, keyProbe); err != nil {
		s.logger.Warn("failed to remove storage probe", "error", err)
		return false
	}
	return true
}

// SaveLastSync persists the time of the last completed drain cycle
func (s *Store) SaveLastSync(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal last sync time: %w", err)
	}
	if err := s.kv.Set(ctx, KeyLastSync, data); err != nil {
		return fmt.Errorf("failed to save last sync time: %w", err)
	}
	return nil
}

// LastSync returns the persisted last sync time, zero if none
func (s *Store) LastSync(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, KeyLastSync)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		s.logger.Warn("corrupted last sync time, clearing", "error", err)
		_ = s.kv.Remove(ctx, KeyLastSync)
		return time.Time{}, nil
	}
	return t, nil
}

// loadQueue reads the queue. Corrupted data is cleared and read as empty.
func (s *Store) loadQueue(ctx context.Context) ([]*models.Submission, error) {
	raw, err := s.kv.Get(ctx, KeySubmissions)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}

	var list []*models.Submission
	if err := json.Unmarshal(raw, &list); err != nil {
		s.logger.Warn("corrupted submission queue, clearing", "error", err)
		if rmErr := s.kv.Remove(ctx, KeySubmissions); rmErr != nil {
			s.logger.Error("failed to clear corrupted queue", "error", rmErr)
		}
		return nil, nil
	}
	return list, nil
}

// loadDraft reads the draft; purge removes stale and corrupted drafts
func (s *Store) loadDraft(ctx context.Context, purge bool) (*models.Draft, error) {
	raw, err := s.kv.Get(ctx, KeyDraft)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		s.logger.Warn("corrupted draft, clearing", "error", err)
		if purge {
			s.removeQuietly(ctx, KeyDraft)
		}
		return nil, nil
	}

	// Черновик без отметки времени считается свежим
	if !draft.LastSaved.IsZero() && s.clock.Now().Sub(draft.LastSaved) > s.draftTTL {
		s.logger.Info("draft is stale, discarding", "last_saved", draft.LastSaved)
		if purge {
			s.removeQuietly(ctx, KeyDraft)
		}
		return nil, nil
	}

	return &draft, nil
}

func (s *Store) removeQuietly(ctx context.Context, key string) {
	if err := s.kv.Remove(ctx, key); err != nil {
		s.logger.Error("failed to remove key", "key", key, "error", err)
	}
}

// persistQueue writes list, healing a full storage by evicting failed records.
// Returns the list that was actually written.
func (s *Store) persistQueue(ctx context.Context, list []*models.Submission) ([]*models.Submission, error) {
	data, err := marshalQueue(list)
	if err != nil {
		return nil, err
	}

	written := list
	err = s.writeHealing(ctx, KeySubmissions, data, func(healed []*models.Submission) ([]byte, error) {
		written = healed
		return marshalQueue(healed)
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// writeHealing writes value under key. On ErrQuotaExceeded the oldest half of
// failed submissions is evicted and the write retried once.
// rebuild re-derives the value when key is the queue itself; for other keys the
// healed queue is persisted first and value is written unchanged.
func (s *Store) writeHealing(ctx context.Context, key string, value []byte,
	rebuild func(healed []*models.Submission) ([]byte, error)) error {
	err := s.kv.Set(ctx, key, value)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		s.logger.Error("storage write failed", "key", key, "error", err)
		s.notifier.Notify(notify.Error, "Local storage error: data could not be saved.")
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	s.logger.Warn("storage quota exceeded, evicting failed submissions", "key", key)

	var queue []*models.Submission
	if rebuild != nil {
		if err := json.Unmarshal(value, &queue); err != nil {
			return fmt.Errorf("failed to decode queue: %w", err)
		}
	} else {
		queue, err = s.loadQueue(ctx)
		if err != nil {
			return err
		}
	}

	healed, evicted := evictOldestFailed(queue)
	if evicted == 0 {
		return s.abandon(key, err)
	}

	if rebuild != nil {
		if value, err = rebuild(healed); err != nil {
			return err
		}
	} else {
		data, mErr := marshalQueue(healed)
		if mErr != nil {
			return mErr
		}
		if err := s.kv.Set(ctx, KeySubmissions, data); err != nil {
			return s.abandon(key, err)
		}
	}

	if err := s.kv.Set(ctx, key, value); err != nil {
		return s.abandon(key, err)
	}

	s.logger.Warn("evicted failed submissions to free storage", "count", evicted)
	s.notifier.Notify(notify.Warning,
		fmt.Sprintf("Storage was full: %d failed submission(s) were removed to make room.", evicted))
	return nil
}

func (s *Store) abandon(key string, cause error) error {
	s.logger.Error("write abandoned, storage is full", "key", key, "error", cause)
	s.notifier.Notify(notify.Warning,
		"Storage is full: data could not be saved. Sync or clear failed submissions to free space.")
	return fmt.Errorf("%w: %s: %w", ErrWriteAbandoned, key, cause)
}

// evictOldestFailed drops the oldest ceil(n/2) failed records, keeping queue order
func evictOldestFailed(list []*models.Submission) ([]*models.Submission, int) {
	var failed []*models.Submission
	for _, rec := range list {
		if rec.Status == models.StatusFailed {
			failed = append(failed, rec)
		}
	}
	if len(failed) == 0 {
		return list, 0
	}

	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].SavedAt.Before(failed[j].SavedAt)
	})

	n := (len(failed) + 1) / 2
	drop := make(map[string]bool, n)
	for _, rec := range failed[:n] {
		drop[rec.ID] = true
	}

	kept := make([]*models.Submission, 0, len(list)-n)
	for _, rec := range list {
		if !drop[rec.ID] {
			kept = append(kept, rec)
		}
	}
	return kept, n
}

func marshalQueue(list []*models.Submission) ([]byte, error) {
	if list == nil {
		list = []*models.Submission{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submissions: %w", err)
	}
	return data, nil
}

func without(list []*models.Submission, id string) []*models.Submission {
	kept := make([]*models.Submission, 0, len(list))
	for _, rec := range list {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	return kept
}

func cloneAll(list []*models.Submission) []*models.Submission {
	out := make([]*models.Submission, len(list))
	for i, rec := range list {
		out[i] = rec.Clone()
	}
	return out
}
