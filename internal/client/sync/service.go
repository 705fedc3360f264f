package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/models"
)

// DefaultAttemptTimeout bounds each delivery attempt
const DefaultAttemptTimeout = 10 * time.Second

// Trigger tells who started a drain cycle
type Trigger int

const (
	// Manual is an explicit user request; outcomes are reported to the user
	Manual Trigger = iota
	// Auto is a reconnect; outcomes are only logged
	Auto
)

func (t Trigger) String() string {
	if t == Auto {
		return "auto"
	}
	return "manual"
}

// Store is the part of the submission store used by the orchestrator
type Store interface {
	ListSubmissions(ctx context.Context) ([]*models.Submission, error)
	RemoveSubmission(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, cause error) error
	ResetSyncing(ctx context.Context) (int, error)
	SaveLastSync(ctx context.Context, t time.Time) error
}

//go:generate moq -out transport_mock.go . Transport

// Transport delivers one submission
type Transport interface {
	Deliver(ctx context.Context, payload models.Payload) error
}

// Connectivity reports the last known online state
type Connectivity interface {
	IsOnline() bool
}

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс оркестратора синхронизации
type Service interface {
	// Sync drains the queue once. At most one cycle runs at a time.
	Sync(ctx context.Context, trigger Trigger) (*Result, error)

	// IsSyncing reports whether a cycle is running
	IsSyncing() bool

	// LastSyncTime returns when the last completed cycle finished, zero if none
	LastSyncTime() time.Time
}

// Result contains drain cycle results
type Result struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	SuccessCount int // количество доставленных записей
	FailureCount int // количество неудачных попыток
}

// Options configures the orchestrator
type Options struct {
	Store        Store
	Transport    Transport
	Connectivity Connectivity
	Notifier     notify.Sink
	Clock        clock.Clock
	Logger       *slog.Logger
	Metrics      *Metrics
	// AttemptTimeout bounds one delivery, DefaultAttemptTimeout when zero
	AttemptTimeout time.Duration
	// RatePerSecond paces deliveries within a cycle, unlimited when zero
	RatePerSecond float64
}

type service struct {
	store     Store
	transport Transport
	conn      Connectivity
	notifier  notify.Sink
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *Metrics
	limiter   *rate.Limiter
	lastSync  atomic.Pointer[time.Time]
	timeout   time.Duration
	syncing   atomic.Bool
}

// NewService creates a new sync orchestrator
func NewService(opts Options) Service {
	s := &service{
		store:     opts.Store,
		transport: opts.Transport,
		conn:      opts.Connectivity,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		timeout:   opts.AttemptTimeout,
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultAttemptTimeout
	}
	if opts.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return s
}

func (s *service) IsSyncing() bool {
	return s.syncing.Load()
}

func (s *service) LastSyncTime() time.Time {
	if t := s.lastSync.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Sync drains a snapshot of the queue, oldest first.
// A delivery failure marks that record failed and the cycle moves on.
// Cancelling ctx stops the cycle before the next record.
func (s *service) Sync(ctx context.Context, trigger Trigger) (*Result, error) {
	manual := trigger == Manual

	if s.conn != nil && !s.conn.IsOnline() {
		s.metrics.Cycles.WithLabelValues(trigger.String(), "offline").Inc()
		if manual {
			s.notifier.Notify(notify.Warning, "You are offline. Pending submissions will be sent when the connection returns.")
		}
		return nil, ErrOffline
	}

	if !s.syncing.CompareAndSwap(false, true) {
		s.metrics.Cycles.WithLabelValues(trigger.String(), "busy").Inc()
		s.logger.Debug("sync trigger ignored, cycle in progress", "trigger", trigger)
		return nil, ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	s.metrics.InFlight.Set(1)
	defer s.metrics.InFlight.Set(0)

	result := &Result{StartedAt: s.clock.Now()}

	// Записи, оставшиеся в syncing после прерванного цикла, снова становятся pending
	if _, err := s.store.ResetSyncing(ctx); err != nil {
		s.logger.Warn("failed to reset interrupted submissions", "error", err)
	}

	snapshot, err := s.store.ListSubmissions(ctx)
	if err != nil {
		s.metrics.Cycles.WithLabelValues(trigger.String(), "error").Inc()
		if manual {
			s.notifier.Notify(notify.Error, "Could not read pending submissions.")
		}
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	if len(snapshot) == 0 {
		s.metrics.Cycles.WithLabelValues(trigger.String(), "empty").Inc()
		if manual {
			s.notifier.Notify(notify.Info, "There are no pending submissions to sync.")
		}
		return nil, ErrNothingToSync
	}

	s.logger.Info("starting drain cycle", "trigger", trigger, "count", len(snapshot))

	for _, rec := range snapshot {
		if err := s.wait(ctx); err != nil {
			return s.interrupted(result, trigger, err)
		}

		delivered, err := s.deliver(ctx, rec)
		if ctx.Err() != nil && !delivered {
			// Прерывание родительского контекста не считается неудачной попыткой
			if resetErr := s.store.UpdateStatus(context.WithoutCancel(ctx), rec.ID, models.StatusPending, nil); resetErr != nil {
				s.logger.Warn("failed to reset submission", "id", rec.ID, "error", resetErr)
			}
			return s.interrupted(result, trigger, ctx.Err())
		}

		if delivered {
			result.SuccessCount++
			s.metrics.Deliveries.WithLabelValues("success").Inc()
			continue
		}

		result.FailureCount++
		s.metrics.Deliveries.WithLabelValues("failure").Inc()
		s.logger.Warn("delivery failed", "id", rec.ID, "attempts", rec.Attempts+1, "error", err)
	}

	now := s.clock.Now()
	result.FinishedAt = now
	s.lastSync.Store(&now)
	if err := s.store.SaveLastSync(ctx, now); err != nil {
		s.logger.Warn("failed to persist last sync time", "error", err)
	}

	s.metrics.Duration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	s.metrics.Cycles.WithLabelValues(trigger.String(), outcome(result)).Inc()
	s.logger.Info("drain cycle finished",
		"trigger", trigger,
		"success", result.SuccessCount,
		"failed", result.FailureCount)

	if manual {
		s.report(result)
	}
	return result, nil
}

// deliver runs one attempt and records its outcome in the store
func (s *service) deliver(ctx context.Context, rec *models.Submission) (bool, error) {
	if err := s.store.UpdateStatus(ctx, rec.ID, models.StatusSyncing, nil); err != nil {
		s.logger.Warn("failed to mark submission syncing", "id", rec.ID, "error", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.transport.Deliver(attemptCtx, rec.Payload)
	cancel()

	if err == nil {
		if rmErr := s.store.RemoveSubmission(ctx, rec.ID); rmErr != nil {
			// Запись будет отправлена повторно, сервер отбросит дубликат по id
			s.logger.Warn("delivered submission could not be removed", "id", rec.ID, "error", rmErr)
		}
		s.logger.Debug("submission delivered", "id", rec.ID)
		return true, nil
	}

	if ctx.Err() != nil {
		return false, err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("delivery timed out after %s: %w", s.timeout, err)
	}
	if upErr := s.store.UpdateStatus(ctx, rec.ID, models.StatusFailed, err); upErr != nil {
		s.logger.Warn("failed to mark submission failed", "id", rec.ID, "error", upErr)
	}
	return false, err
}

func (s *service) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *service) interrupted(result *Result, trigger Trigger, err error) (*Result, error) {
	result.FinishedAt = s.clock.Now()
	s.metrics.Cycles.WithLabelValues(trigger.String(), "cancelled").Inc()
	s.logger.Warn("drain cycle interrupted",
		"success", result.SuccessCount,
		"failed", result.FailureCount,
		"error", err)
	return result, fmt.Errorf("sync interrupted: %w", err)
}

func (s *service) report(r *Result) {
	switch {
	case r.FailureCount == 0:
		s.notifier.Notify(notify.Success, fmt.Sprintf("%d submission(s) synced.", r.SuccessCount))
	case r.SuccessCount > 0:
		s.notifier.Notify(notify.Warning, fmt.Sprintf(
			"%d submission(s) synced, %d failed. Failed ones will be retried on the next sync.",
			r.SuccessCount, r.FailureCount))
	default:
		s.notifier.Notify(notify.Error, fmt.Sprintf(
			"No submissions could be synced (%d failed). They will be retried on the next sync.", r.FailureCount))
	}
}

func outcome(r *Result) string {
	switch {
	case r.FailureCount == 0:
		return "success"
	case r.SuccessCount > 0:
		return "partial"
	default:
		return "failure"
	}
}
