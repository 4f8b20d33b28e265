// Package poller provides scoped interval loops: acquired at startup,
// guaranteed to stop on shutdown. It backs the dashboard auto-refresh and
// connection-health checks.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller runs a function on a fixed interval until stopped.
type Poller struct {
	name     string
	interval time.Duration
	fn       func(context.Context)
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New constructs a poller. The function runs once immediately on Start and
// then on every tick.
func New(name string, interval time.Duration, fn func(context.Context), logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{name: name, interval: interval, fn: fn, logger: logger}
}

// Start launches the loop. Starting an already-running poller is a no-op.
func (p *Poller) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.fn == nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func() {
		defer close(p.done)
		p.logger.Debug("poller started", slog.String("name", p.name), slog.Duration("interval", p.interval))

		p.fn(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("poller stopped", slog.String("name", p.name))
				return
			case <-ticker.C:
				p.fn(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to return. Safe to
// call multiple times and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
}
