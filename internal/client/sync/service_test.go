package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/queue"
	"github.com/iudanet/yardsync/internal/client/storage/memory"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/models"
)

var start = time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)

type onlineFlag bool

func (o onlineFlag) IsOnline() bool { return bool(o) }

type fixture struct {
	store     *queue.Store
	transport *TransportMock
	notifier  *notify.SinkMock
	clock     *clock.Fake
	metrics   *Metrics
	opts      Options
}

func newFixture(t *testing.T, deliver func(ctx context.Context, p models.Payload) error) *fixture {
	t.Helper()

	fc := clock.NewFake(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := queue.New(queue.Options{KV: memory.New(0), Clock: fc, Logger: logger})
	transport := &TransportMock{DeliverFunc: deliver}
	sink := &notify.SinkMock{NotifyFunc: func(notify.Severity, string) {}}
	metrics := NewMetrics(prometheus.NewRegistry())

	return &fixture{
		store:     store,
		transport: transport,
		notifier:  sink,
		clock:     fc,
		metrics:   metrics,
		opts: Options{
			Store:        store,
			Transport:    transport,
			Connectivity: onlineFlag(true),
			Notifier:     sink,
			Clock:        fc,
			Logger:       logger,
			Metrics:      metrics,
		},
	}
}

func (f *fixture) service() Service {
	return NewService(f.opts)
}

func (f *fixture) enqueue(t *testing.T, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		rec, err := f.store.SaveSubmission(context.Background(), models.Payload{
			Kind:   models.KindEntry,
			Fields: map[string]any{"n": i},
		})
		require.NoError(t, err)
		out = append(out, rec.ID)
	}
	return out
}

func (f *fixture) queued(t *testing.T) []*models.Submission {
	t.Helper()
	list, err := f.store.ListSubmissions(context.Background())
	require.NoError(t, err)
	return list
}

// fieldN reads the marker field; it is a float64 once the record went through JSON
func fieldN(p models.Payload) int {
	switch n := p.Fields["n"].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func TestService_DrainCountsSuccessAndFailure(t *testing.T) {
	errDown := errors.New("503 service unavailable")

	tests := []struct {
		name        string
		failing     map[int]bool
		wantSuccess int
		wantFailure int
		wantLeft    []int
		wantNotice  notify.Severity
	}{
		{
			name:        "all delivered",
			failing:     map[int]bool{},
			wantSuccess: 4,
			wantNotice:  notify.Success,
		},
		{
			name:        "partial",
			failing:     map[int]bool{2: true, 4: true},
			wantSuccess: 2,
			wantFailure: 2,
			wantLeft:    []int{2, 4},
			wantNotice:  notify.Warning,
		},
		{
			name:        "none delivered",
			failing:     map[int]bool{1: true, 2: true, 3: true, 4: true},
			wantFailure: 4,
			wantLeft:    []int{1, 2, 3, 4},
			wantNotice:  notify.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(ctx context.Context, p models.Payload) error {
				if tt.failing[fieldN(p)] {
					return errDown
				}
				return nil
			})
			f.enqueue(t, 4)

			res, err := f.service().Sync(context.Background(), Manual)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, res.SuccessCount)
			assert.Equal(t, tt.wantFailure, res.FailureCount)

			// Доставка идет строго в порядке очереди
			calls := f.transport.DeliverCalls()
			require.Len(t, calls, 4)
			for i, c := range calls {
				assert.Equal(t, i+1, fieldN(c.Payload))
			}

			left := f.queued(t)
			require.Len(t, left, len(tt.wantLeft))
			for i, rec := range left {
				assert.Equal(t, tt.wantLeft[i], fieldN(rec.Payload))
				assert.Equal(t, models.StatusFailed, rec.Status)
				assert.Equal(t, 1, rec.Attempts)
				assert.Equal(t, errDown.Error(), rec.LastError)
				require.NotNil(t, rec.LastAttempt)
			}

			notices := f.notifier.NotifyCalls()
			require.Len(t, notices, 1)
			assert.Equal(t, tt.wantNotice, notices[0].Severity)
		})
	}
}

func TestService_LastSyncTime(t *testing.T) {
	f := newFixture(t, func(context.Context, models.Payload) error { return nil })
	f.enqueue(t, 1)
	svc := f.service()

	assert.True(t, svc.LastSyncTime().IsZero())

	f.clock.Advance(time.Minute)
	res, err := svc.Sync(context.Background(), Manual)
	require.NoError(t, err)

	want := start.Add(time.Minute)
	assert.True(t, want.Equal(svc.LastSyncTime()))
	assert.True(t, want.Equal(res.FinishedAt))

	persisted, err := f.store.LastSync(context.Background())
	require.NoError(t, err)
	assert.True(t, want.Equal(persisted))
}

func TestService_FailedRecordsAreRetriedEveryCycle(t *testing.T) {
	f := newFixture(t, func(context.Context, models.Payload) error { return errors.New("down") })
	f.enqueue(t, 1)
	svc := f.service()

	for i := 0; i < 3; i++ {
		_, err := svc.Sync(context.Background(), Auto)
		require.NoError(t, err)
	}

	left := f.queued(t)
	require.Len(t, left, 1)
	assert.Equal(t, 3, left[0].Attempts)
	assert.Len(t, f.transport.DeliverCalls(), 3)
}

func TestService_Offline(t *testing.T) {
	for _, trigger := range []Trigger{Manual, Auto} {
		t.Run(trigger.String(), func(t *testing.T) {
			f := newFixture(t, func(context.Context, models.Payload) error { return nil })
			f.enqueue(t, 2)
			f.opts.Connectivity = onlineFlag(false)

			res, err := f.service().Sync(context.Background(), trigger)
			assert.ErrorIs(t, err, ErrOffline)
			assert.Nil(t, res)
			assert.Empty(t, f.transport.DeliverCalls())
			assert.Len(t, f.queued(t), 2)

			notices := f.notifier.NotifyCalls()
			if trigger == Manual {
				require.Len(t, notices, 1)
				assert.Equal(t, notify.Warning, notices[0].Severity)
			} else {
				assert.Empty(t, notices)
			}
		})
	}
}

func TestService_NothingToSync(t *testing.T) {
	for _, trigger := range []Trigger{Manual, Auto} {
		t.Run(trigger.String(), func(t *testing.T) {
			f := newFixture(t, func(context.Context, models.Payload) error { return nil })
			svc := f.service()

			_, err := svc.Sync(context.Background(), trigger)
			assert.ErrorIs(t, err, ErrNothingToSync)
			assert.True(t, svc.LastSyncTime().IsZero())

			notices := f.notifier.NotifyCalls()
			if trigger == Manual {
				require.Len(t, notices, 1)
				assert.Equal(t, notify.Info, notices[0].Severity)
			} else {
				assert.Empty(t, notices)
			}
		})
	}
}

func TestService_AtMostOneDrainAtATime(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 10)

	f := newFixture(t, func(ctx context.Context, p models.Payload) error {
		entered <- struct{}{}
		<-release
		return nil
	})
	f.enqueue(t, 3)
	svc := f.service()

	var wg sync.WaitGroup
	var first *Result
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = svc.Sync(context.Background(), Auto)
	}()

	<-entered
	assert.True(t, svc.IsSyncing())

	_, err := svc.Sync(context.Background(), Manual)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	_, err = svc.Sync(context.Background(), Auto)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, 3, first.SuccessCount)
	assert.Len(t, f.transport.DeliverCalls(), 3)
	assert.False(t, svc.IsSyncing())
	assert.Empty(t, f.queued(t))
}

func TestService_RecordIsSyncingDuringDelivery(t *testing.T) {
	var f *fixture
	var seen models.SubmissionStatus
	f = newFixture(t, func(ctx context.Context, p models.Payload) error {
		list, err := f.store.ListSubmissions(ctx)
		if err == nil && len(list) > 0 {
			seen = list[0].Status
		}
		return nil
	})
	f.enqueue(t, 1)

	_, err := f.service().Sync(context.Background(), Manual)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSyncing, seen)
}

func TestService_CancellationStopsBeforeNextRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, func(_ context.Context, p models.Payload) error {
		if fieldN(p) == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	})
	f.enqueue(t, 3)
	svc := f.service()

	res, err := svc.Sync(ctx, Manual)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.Len(t, f.transport.DeliverCalls(), 2)
	assert.False(t, svc.IsSyncing())
	assert.True(t, svc.LastSyncTime().IsZero())

	// Прерванная запись и нетронутая запись остаются pending
	left := f.queued(t)
	require.Len(t, left, 2)
	for _, rec := range left {
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Equal(t, 0, rec.Attempts)
	}
}

func TestService_AttemptTimeoutIsAFailure(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, p models.Payload) error {
		<-ctx.Done()
		return ctx.Err()
	})
	f.opts.AttemptTimeout = 10 * time.Millisecond
	f.enqueue(t, 1)

	res, err := f.service().Sync(context.Background(), Auto)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailureCount)

	left := f.queued(t)
	require.Len(t, left, 1)
	assert.Equal(t, models.StatusFailed, left[0].Status)
	assert.Contains(t, left[0].LastError, "timed out")
}

func TestService_ResetsInterruptedRecords(t *testing.T) {
	f := newFixture(t, func(context.Context, models.Payload) error { return errors.New("down") })
	ids := f.enqueue(t, 1)
	require.NoError(t, f.store.UpdateStatus(context.Background(), ids[0], models.StatusSyncing, nil))

	_, err := f.service().Sync(context.Background(), Auto)
	require.NoError(t, err)

	left := f.queued(t)
	require.Len(t, left, 1)
	assert.Equal(t, models.StatusFailed, left[0].Status)
	assert.Equal(t, 1, left[0].Attempts)
}

func TestService_CancelledContextDeliversNothing(t *testing.T) {
	f := newFixture(t, func(context.Context, models.Payload) error { return nil })
	f.opts.RatePerSecond = 100
	f.enqueue(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service().Sync(ctx, Manual)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.transport.DeliverCalls())
	assert.Len(t, f.queued(t), 2)
}

func TestService_RatePacing(t *testing.T) {
	f := newFixture(t, func(context.Context, models.Payload) error { return nil })
	f.opts.RatePerSecond = 1000
	f.enqueue(t, 5)

	res, err := f.service().Sync(context.Background(), Manual)
	require.NoError(t, err)
	assert.Equal(t, 5, res.SuccessCount)
}

func TestService_Metrics(t *testing.T) {
	f := newFixture(t, func(_ context.Context, p models.Payload) error {
		if fieldN(p) == 1 {
			return errors.New("down")
		}
		return nil
	})
	f.enqueue(t, 2)
	svc := f.service()

	_, err := svc.Sync(context.Background(), Manual)
	require.NoError(t, err)
	_, err = svc.Sync(context.Background(), Auto)
	require.NoError(t, err)

	m := f.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("manual", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("auto", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestTrigger_String(t *testing.T) {
	assert.Equal(t, "manual", Manual.String())
	assert.Equal(t, "auto", Auto.String())
}
