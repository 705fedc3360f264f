package connectivity

import (
	"context"
	"log/slog"
	"time"
)

// DefaultProbeInterval is how often the Prober checks the collector
const DefaultProbeInterval = 15 * time.Second

// HealthChecker is the probe target, usually the API client
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober turns periodic health checks into connectivity signals.
// Only changes are emitted; a failed probe means offline.
type Prober struct {
	checker  HealthChecker
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewProber creates a prober; interval <= 0 means DefaultProbeInterval
func NewProber(checker HealthChecker, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		checker:  checker,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
}

// Probe performs one health check
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.checker.Health(ctx); err != nil {
		p.logger.Debug("health probe failed", "error", err)
		return false
	}
	return true
}

// Run probes immediately and then every interval, sending the state on the
// returned channel whenever it differs from the previous one. The channel is
// closed when ctx is done.
func (p *Prober) Run(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last *bool
		for {
			online := p.Probe(ctx)
			if ctx.Err() != nil {
				return
			}
			if last == nil || *last != online {
				select {
				case out <- online:
				case <-ctx.Done():
					return
				}
				last = &online
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
