package usecases

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCleanupInterval is how often idle sessions are swept.
const DefaultCleanupInterval = time.Minute

// SessionCleanup periodically expires idle sessions in a SessionStore.
type SessionCleanup struct {
	store    *SessionStore
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSessionCleanup creates a cleanup service. A non-positive interval uses DefaultCleanupInterval.
func NewSessionCleanup(store *SessionStore, interval time.Duration, logger *zap.Logger) *SessionCleanup {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCleanup{
		store:    store,
		interval: interval,
		logger:   logger.Named("session-cleanup"),
	}
}

// Start launches the sweep loop. Starting a running service is a no-op.
func (c *SessionCleanup) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(loopCtx, c.done)
}

// Stop cancels the loop and waits for it to exit.
func (c *SessionCleanup) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the sweep loop is active.
func (c *SessionCleanup) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *SessionCleanup) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		close(done)
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("cleanup stopping")
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *SessionCleanup) sweep() {
	start := time.Now()
	removed := c.store.ExpireIdle()
	if removed > 0 {
		c.logger.Info("expired idle sessions",
			zap.Int("removed", removed),
			zap.Int("live", c.store.Len()),
			zap.Duration("duration", time.Since(start)))
	}
}
