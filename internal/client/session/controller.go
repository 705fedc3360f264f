// Package session drives one form on behalf of the presentation layer:
// autosave on idle, draft recovery, online and offline submit, and auto-sync
// when the connection returns.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/yardsync/internal/client/api"
	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/queue"
	syncsvc "github.com/iudanet/yardsync/internal/client/sync"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
	"github.com/iudanet/yardsync/internal/models"
)

const (
	// DefaultAutosaveIdle is the quiet period after the last change before the draft is saved
	DefaultAutosaveIdle = 30 * time.Second
	// DefaultSuccessMessageTTL is how long a success message stays visible
	DefaultSuccessMessageTTL = 5 * time.Second
	// DefaultDeliveryTimeout bounds the immediate delivery on an online submit
	DefaultDeliveryTimeout = 10 * time.Second
)

const (
	msgDelivered    = "Form submitted successfully. You can fill in another one."
	msgSavedOffline = "You are offline. The form was saved locally and will be sent when the connection returns."
	msgUnexpected   = "An unexpected error occurred"
)

// Store is the part of the submission store used by the controller
type Store interface {
	SaveSubmission(ctx context.Context, payload models.Payload) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, cause error) error
	SaveDraft(ctx context.Context, kind models.FormKind, fields map[string]any) error
	GetDraft(ctx context.Context) (*models.Draft, error)
	ClearDraft(ctx context.Context) error
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) models.Stats
	LastSync(ctx context.Context) (time.Time, error)
}

// Connectivity is the online state source
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Options configures a Controller
type Options struct {
	Store        Store
	Transport    syncsvc.Transport
	Sync         syncsvc.Service
	Connectivity Connectivity
	Notifier     notify.Sink
	Clock        clock.Clock
	Logger       *slog.Logger
	// Validator is optional; a nil Validator accepts every payload
	Validator forms.Validator
	// Defaults are the empty field values the form is reset to
	Defaults          map[string]any
	Kind              models.FormKind
	AutosaveIdle      time.Duration
	SuccessMessageTTL time.Duration
	DeliveryTimeout   time.Duration
}

// Controller is the state of one form session. It is safe for concurrent use.
type Controller struct {
	store     Store
	transport syncsvc.Transport
	sync      syncsvc.Service
	conn      Connectivity
	notifier  notify.Sink
	clock     clock.Clock
	logger    *slog.Logger
	validator forms.Validator

	defaults map[string]any
	fields   map[string]any
	subs     map[uint64]func(State)

	idleTimer clock.Timer
	msgTimer  clock.Timer

	unsubscribe func()
	baseCtx     context.Context
	cancel      context.CancelFunc

	kind            models.FormKind
	idle            time.Duration
	messageTTL      time.Duration
	deliveryTimeout time.Duration

	state State
	wg    sync.WaitGroup
	mu    sync.Mutex

	nextSub uint64
	idleGen uint64
	msgGen  uint64
	closed  bool
}

// New creates a controller for one form kind. Call Mount before use.
func New(opts Options) *Controller {
	c := &Controller{
		store:           opts.Store,
		transport:       opts.Transport,
		sync:            opts.Sync,
		conn:            opts.Connectivity,
		notifier:        opts.Notifier,
		clock:           opts.Clock,
		logger:          opts.Logger,
		validator:       opts.Validator,
		defaults:        models.CloneFields(opts.Defaults),
		kind:            opts.Kind,
		idle:            opts.AutosaveIdle,
		messageTTL:      opts.SuccessMessageTTL,
		deliveryTimeout: opts.DeliveryTimeout,
		subs:            make(map[uint64]func(State)),
	}
	if c.defaults == nil {
		c.defaults = map[string]any{}
	}
	if c.notifier == nil {
		c.notifier = notify.Discard{}
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.idle <= 0 {
		c.idle = DefaultAutosaveIdle
	}
	if c.messageTTL <= 0 {
		c.messageTTL = DefaultSuccessMessageTTL
	}
	if c.deliveryTimeout <= 0 {
		c.deliveryTimeout = DefaultDeliveryTimeout
	}
	c.logger = c.logger.With("form", string(c.kind))
	c.fields = models.CloneFields(c.defaults)
	c.baseCtx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Mount restores a draft of the same kind, loads the queue counters and
// starts following connectivity.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	mounted := c.unsubscribe != nil
	c.mu.Unlock()

	if _, err := c.LoadDraft(ctx); err != nil {
		c.logger.Warn("failed to restore draft", "error", err)
	}

	last, err := c.store.LastSync(ctx)
	if err != nil {
		c.logger.Warn("failed to read last sync time", "error", err)
	}
	if t := c.sync.LastSyncTime(); t.After(last) {
		last = t
	}

	c.mu.Lock()
	c.state.LastSyncTime = last
	c.state.IsOnline = c.conn.IsOnline()
	c.state.IsSyncing = c.sync.IsSyncing()
	c.mu.Unlock()
	c.refreshPending(ctx)

	if !mounted {
		// Subscribe сразу вызывает колбэк с текущим состоянием, блокировку держать нельзя
		unsubscribe := c.conn.Subscribe(c.onConnectivity)
		c.mu.Lock()
		c.unsubscribe = unsubscribe
		c.mu.Unlock()
	}

	c.publish()
	return nil
}

// Change sets one field and restarts the autosave idle timer
func (c *Controller) Change(field string, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.fields[field] = value
	c.state.HasUnsavedChanges = true
	c.restartIdleLocked()
	c.mu.Unlock()

	c.publish()
}

// Fields returns a copy of the current field values
func (c *Controller) Fields() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CloneFields(c.fields)
}

// State returns a snapshot of the exposed state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called with the new state after every change
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Submit validates the fields and delivers them, or queues them when offline
// or when delivery fails. The form is reset once the submission is delivered
// or stored. A non-nil error means nothing was stored and the fields are kept.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NotSubmitted, ErrClosed
	}
	if c.state.IsSubmitting {
		c.mu.Unlock()
		return NotSubmitted, ErrSubmitInProgress
	}
	c.state.IsSubmitting = true
	c.state.SubmitError = ""
	c.clearMessageLocked()
	// Отправляемые поля не должны вернуться черновиком через автосохранение
	c.stopIdleLocked()
	fields := models.CloneFields(c.fields)
	c.mu.Unlock()
	c.publish()

	if c.validator != nil {
		if err := c.validator.Validate(c.kind, fields); err != nil {
			c.resumeAutosave()
			c.finishSubmit(err.Error())
			return NotSubmitted, err
		}
	}

	payload := models.Payload{
		ID:     queue.NewID(c.clock.Now()),
		Kind:   c.kind,
		Fields: fields,
	}

	if !c.conn.IsOnline() {
		if _, err := c.store.SaveSubmission(ctx, payload); err != nil {
			c.resumeAutosave()
			c.finishSubmit(errorMessage(err))
			return NotSubmitted, fmt.Errorf("failed to queue submission: %w", err)
		}
		c.logger.Info("submission queued while offline", "id", payload.ID)
		c.afterStored(ctx)
		c.mu.Lock()
		c.setMessageLocked(msgSavedOffline)
		c.mu.Unlock()
		c.finishSubmit("")
		return Queued, nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, c.deliveryTimeout)
	deliverErr := c.transport.Deliver(deliverCtx, payload)
	cancel()

	if deliverErr == nil {
		c.logger.Info("submission delivered", "id", payload.ID)
		c.afterStored(ctx)
		c.mu.Lock()
		c.state.SuccessfulSubmissions++
		c.setMessageLocked(msgDelivered)
		c.mu.Unlock()
		c.finishSubmit("")
		return Delivered, nil
	}

	c.logger.Warn("delivery failed, queueing submission", "id", payload.ID, "error", deliverErr)

	rec, err := c.store.SaveSubmission(ctx, payload)
	if err != nil {
		c.resumeAutosave()
		c.finishSubmit(errorMessage(deliverErr))
		return NotSubmitted, fmt.Errorf("failed to queue submission: %w", err)
	}
	if err := c.store.UpdateStatus(ctx, rec.ID, models.StatusFailed, deliverErr); err != nil {
		c.logger.Warn("failed to mark submission failed", "id", rec.ID, "error", err)
	}
	c.afterStored(ctx)
	c.finishSubmit(errorMessage(deliverErr))
	return QueuedAfterFailure, nil
}

// SaveAsDraft saves the current fields as the draft right away
func (c *Controller) SaveAsDraft(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopIdleLocked()
	gen := c.idleGen
	fields := models.CloneFields(c.fields)
	c.mu.Unlock()

	return c.saveDraft(ctx, gen, fields)
}

// LoadDraft replaces the fields with the stored draft of this kind.
// It reports whether a draft was restored.
func (c *Controller) LoadDraft(ctx context.Context) (bool, error) {
	draft, err := c.store.GetDraft(ctx)
	if err != nil {
		return false, err
	}
	if draft == nil {
		return false, nil
	}
	if draft.Kind != c.kind {
		c.logger.Debug("draft belongs to another form", "draft_kind", draft.Kind)
		return false, nil
	}

	c.mu.Lock()
	fields := models.CloneFields(c.defaults)
	for k, v := range draft.Fields {
		fields[k] = v
	}
	c.fields = fields
	// Восстановленные данные еще не отправлены на сервер
	c.state.HasUnsavedChanges = true
	c.mu.Unlock()

	c.logger.Info("draft restored", "saved_at", draft.LastSaved)
	c.publish()
	return true, nil
}

// ForceSync runs a manual drain cycle and waits for it
func (c *Controller) ForceSync(ctx context.Context) (*syncsvc.Result, error) {
	c.setSyncing(true)
	res, err := c.sync.Sync(ctx, syncsvc.Manual)
	c.afterSync(ctx, res, err, false)
	return res, err
}

// ClearOfflineData deletes every queued submission and the draft
func (c *Controller) ClearOfflineData(ctx context.Context) error {
	if err := c.store.ClearAll(ctx); err != nil {
		return err
	}
	c.refreshPending(ctx)
	c.notifier.Notify(notify.Info, "Offline data deleted.")
	c.publish()
	return nil
}

// BeforeUnload saves the draft if there are unsaved changes and reports
// whether the user should be warned.
func (c *Controller) BeforeUnload(ctx context.Context) bool {
	c.mu.Lock()
	unsaved := c.state.HasUnsavedChanges
	c.mu.Unlock()

	if !unsaved {
		return false
	}
	if err := c.SaveAsDraft(ctx); err != nil {
		c.logger.Warn("failed to save draft before exit", "error", err)
	}
	return true
}

// ClearError hides the submit error
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.state.SubmitError = ""
	c.mu.Unlock()
	c.publish()
}

// ClearSuccessMessage hides the success message before it expires
func (c *Controller) ClearSuccessMessage() {
	c.mu.Lock()
	c.clearMessageLocked()
	c.mu.Unlock()
	c.publish()
}

// ResetSuccessCounter sets the successful submissions counter back to zero
func (c *Controller) ResetSuccessCounter() {
	c.mu.Lock()
	c.state.SuccessfulSubmissions = 0
	c.mu.Unlock()
	c.publish()
}

// Close stops the timers and the connectivity subscription and waits for a
// running auto-sync to return. It does not save the draft; see BeforeUnload.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopIdleLocked()
	if c.msgTimer != nil {
		c.msgTimer.Stop()
	}
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancel()
	c.wg.Wait()
}

// onConnectivity is the Monitor subscriber; an offline to online transition starts an auto-sync
func (c *Controller) onConnectivity(online bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	regained := online && !c.state.IsOnline
	c.state.IsOnline = online
	if regained {
		c.wg.Add(1)
	}
	c.mu.Unlock()
	c.publish()

	if regained {
		c.logger.Info("connection restored, syncing pending submissions")
		go c.autoSync()
	}
}

func (c *Controller) autoSync() {
	defer c.wg.Done()

	c.setSyncing(true)
	res, err := c.sync.Sync(c.baseCtx, syncsvc.Auto)
	c.afterSync(c.baseCtx, res, err, true)
}

func (c *Controller) setSyncing(v bool) {
	c.mu.Lock()
	c.state.IsSyncing = v
	c.mu.Unlock()
	c.publish()
}

// afterSync folds a cycle result into the state. Auto-sync successes are
// added to the success counter.
func (c *Controller) afterSync(ctx context.Context, res *syncsvc.Result, err error, count bool) {
	switch {
	case err == nil:
	case errors.Is(err, syncsvc.ErrNothingToSync), errors.Is(err, syncsvc.ErrOffline),
		errors.Is(err, syncsvc.ErrSyncInProgress):
		c.logger.Debug("sync skipped", "reason", err)
	default:
		c.logger.Warn("sync failed", "error", err)
	}

	c.mu.Lock()
	// Другой цикл (ручной или автоматический) может еще выполняться
	c.state.IsSyncing = c.sync.IsSyncing()
	if res != nil && !res.FinishedAt.IsZero() && err == nil {
		c.state.LastSyncTime = res.FinishedAt
		if count {
			c.state.SuccessfulSubmissions += res.SuccessCount
		}
	}
	c.mu.Unlock()

	if res != nil && count && res.SuccessCount > 0 {
		c.logger.Info("pending submissions synced automatically", "count", res.SuccessCount)
	}
	c.refreshPending(context.WithoutCancel(ctx))
	c.publish()
}

// afterStored clears the draft and resets the form once the payload is safe
func (c *Controller) afterStored(ctx context.Context) {
	if err := c.store.ClearDraft(ctx); err != nil {
		c.logger.Warn("failed to clear draft", "error", err)
	}
	c.mu.Lock()
	c.fields = models.CloneFields(c.defaults)
	c.state.HasUnsavedChanges = false
	c.stopIdleLocked()
	c.mu.Unlock()
	c.refreshPending(ctx)
}

func (c *Controller) finishSubmit(submitErr string) {
	c.mu.Lock()
	c.state.IsSubmitting = false
	c.state.SubmitError = submitErr
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) refreshPending(ctx context.Context) {
	stats := c.store.Stats(ctx)
	c.mu.Lock()
	c.state.PendingSubmissions = stats.PendingCount + stats.SyncingCount + stats.FailedCount
	c.mu.Unlock()
}

// resumeAutosave re-arms the idle save after a submit that stored nothing
func (c *Controller) resumeAutosave() {
	c.mu.Lock()
	if !c.closed && c.state.HasUnsavedChanges {
		c.restartIdleLocked()
	}
	c.mu.Unlock()
}

// restartIdleLocked restarts the autosave debounce. Caller holds c.mu.
func (c *Controller) restartIdleLocked() {
	c.stopIdleLocked()
	gen := c.idleGen
	c.idleTimer = c.clock.AfterFunc(c.idle, func() { c.autosave(gen) })
}

// stopIdleLocked cancels a pending autosave. Caller holds c.mu.
func (c *Controller) stopIdleLocked() {
	c.idleGen++
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

func (c *Controller) autosave(gen uint64) {
	c.mu.Lock()
	// Таймер мог сработать одновременно с новым изменением
	if c.closed || gen != c.idleGen {
		c.mu.Unlock()
		return
	}
	c.idleTimer = nil
	fields := models.CloneFields(c.fields)
	c.mu.Unlock()

	if err := c.saveDraft(c.baseCtx, gen, fields); err != nil {
		c.logger.Warn("autosave failed", "error", err)
	}
}

// saveDraft stores fields and clears the unsaved flag unless the form changed meanwhile
func (c *Controller) saveDraft(ctx context.Context, gen uint64, fields map[string]any) error {
	if err := c.store.SaveDraft(ctx, c.kind, fields); err != nil {
		return err
	}

	c.mu.Lock()
	if gen == c.idleGen {
		c.state.HasUnsavedChanges = false
	}
	c.mu.Unlock()

	c.logger.Debug("draft saved")
	c.publish()
	return nil
}

// setMessageLocked shows msg and schedules its removal. Caller holds c.mu.
func (c *Controller) setMessageLocked(msg string) {
	c.clearMessageLocked()
	c.state.SuccessMessage = msg
	gen := c.msgGen
	c.msgTimer = c.clock.AfterFunc(c.messageTTL, func() {
		c.mu.Lock()
		if gen != c.msgGen {
			c.mu.Unlock()
			return
		}
		c.state.SuccessMessage = ""
		c.msgTimer = nil
		c.mu.Unlock()
		c.publish()
	})
}

// clearMessageLocked hides the message and cancels its timer. Caller holds c.mu.
func (c *Controller) clearMessageLocked() {
	c.msgGen++
	c.state.SuccessMessage = ""
	if c.msgTimer != nil {
		c.msgTimer.Stop()
		c.msgTimer = nil
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	st := c.state
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// errorMessage turns a delivery error into text for the form
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil || err.Error() == "" {
		return msgUnexpected
	}
	return err.Error()
}
