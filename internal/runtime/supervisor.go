// Package runtime supervises the robot session: a heartbeat loop that
// detects a lost connection, reconnects, and re-arms event delivery.
// A hardware disconnect never crashes the process.
package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"genesis/internal/robot"
)

// Connection is the slice of the connection manager the supervisor
// drives. *robot.Client satisfies it.
type Connection interface {
	Connect(ctx context.Context) bool
	Healthy() bool
	Subscribe(cb robot.Callback)
}

// Supervisor checks connection health on a fixed interval. On failure it
// reconnects and re-subscribes with the latest callback before the next
// tick; subscriptions do not survive a session reset.
type Supervisor struct {
	conn     Connection
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	callback robot.Callback
	failures int

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSupervisor creates a stopped supervisor ticking at interval.
func NewSupervisor(conn Connection, interval time.Duration, log *zap.Logger) *Supervisor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Supervisor{
		conn:     conn,
		interval: interval,
		log:      log.Named("supervisor"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetCallback records the event callback used on every (re)subscribe.
func (s *Supervisor) SetCallback(cb robot.Callback) {
	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()
}

// Start launches the heartbeat loop. Safe to call once.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop halts the loop and waits up to timeout for it to exit.
func (s *Supervisor) Stop(timeout time.Duration) bool {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Supervisor) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.beat()
		}
	}
}

// beat performs one health check. Reconnect failures are retried on the
// next tick; the interval itself is the backoff.
func (s *Supervisor) beat() {
	if s.conn.Healthy() {
		s.mu.Lock()
		s.failures = 0
		s.mu.Unlock()
		return
	}

	s.log.Warn("connection unhealthy, attempting reconnect")
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if !s.conn.Connect(ctx) {
		s.mu.Lock()
		s.failures++
		n := s.failures
		s.mu.Unlock()
		s.log.Warn("reconnect failed, will retry on next heartbeat", zap.Int("consecutive", n))
		return
	}

	s.mu.Lock()
	s.failures = 0
	cb := s.callback
	s.mu.Unlock()

	if cb != nil {
		s.conn.Subscribe(cb)
	}
	s.log.Info("reconnected and re-armed event delivery")
}
