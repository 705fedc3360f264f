// Package connectivity tracks whether the collector is reachable and fans
// transitions out to subscribers.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
)

// Monitor holds the last known online state.
// State changes are edge-triggered: repeated identical signals are ignored.
type Monitor struct {
	logger *slog.Logger
	subs   map[uint64]func(online bool)
	nextID uint64
	mu     sync.RWMutex
	// setMu упорядочивает доставку: подписчики видят переходы в том же порядке, что и состояние
	setMu  sync.Mutex
	online bool
}

// New creates a monitor with the given initial state.
// Without an environment signal the caller should pass true.
func New(initial bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		online: initial,
		logger: logger,
		subs:   make(map[uint64]func(bool)),
	}
}

// IsOnline returns the last known state, no I/O
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers fn and immediately calls it with the current state.
// fn is then called once per transition. The returned func deregisters fn;
// calling it more than once is a no-op. Subscribe must not be called from a subscriber.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.setMu.Lock()
	defer m.setMu.Unlock()

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	current := m.online
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Set applies an environment signal ("became online" / "became offline").
// Concurrent calls are serialised, so the last value a subscriber receives is
// the current state. Subscribers must not call Set.
func (m *Monitor) Set(online bool) {
	m.setMu.Lock()
	defer m.setMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if online {
		m.logger.Info("connection restored")
	} else {
		m.logger.Warn("connection lost")
	}

	// Подписчики вызываются без блокировки: они могут читать IsOnline
	for _, fn := range subs {
		fn(online)
	}
}

// Watch feeds signals from ch into Set until ctx is done or ch is closed
func (m *Monitor) Watch(ctx context.Context, ch <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-ch:
			if !ok {
				return
			}
			m.Set(online)
		}
	}
}
