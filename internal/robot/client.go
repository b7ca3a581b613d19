package robot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ConnectionState tracks the session lifecycle. Owned exclusively by Client.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client owns the session lifecycle against the hardware link: connect,
// health check, reconnect-with-resubscribe, disconnect. Commands issued while
// the session is down degrade to logged no-ops; connect failures are reported
// to the caller and retried by the heartbeat loop, never internally.
type Client struct {
	link         Link
	log          *zap.Logger
	pollInterval time.Duration
	joinTimeout  time.Duration

	state atomic.Int32

	mu     sync.Mutex
	poller *Poller
}

// NewClient wraps a link with lifecycle management.
func NewClient(link Link, pollInterval time.Duration, log *zap.Logger) *Client {
	return &Client{
		link:         link,
		log:          log.Named("robot"),
		pollInterval: pollInterval,
		joinTimeout:  5 * time.Second,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Connect attempts the session handshake. It blocks the calling goroutine
// only (the link dial runs under ctx with its own timeout) and reports
// success; failure never propagates as a panic or error past this boundary.
func (c *Client) Connect(ctx context.Context) bool {
	c.state.Store(int32(StateConnecting))

	if err := c.link.Connect(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		c.log.Error("connection attempt failed", zap.Error(err))
		return false
	}

	c.state.Store(int32(StateConnected))
	c.log.Info("hardware link connected")
	return true
}

// Healthy is a cheap read of connection health. A dead link demotes the
// state so subsequent commands no-op until the heartbeat reconnects.
func (c *Client) Healthy() bool {
	if c.State() != StateConnected {
		return false
	}
	if !c.link.Connected() {
		c.state.Store(int32(StateDisconnected))
		return false
	}
	return true
}

// Subscribe registers the sensor callback and (re)arms the event poller.
// Subscriptions do not survive a session reset; callers must re-subscribe
// after every successful reconnect.
func (c *Client) Subscribe(cb Callback) {
	if !c.Healthy() {
		c.log.Warn("cannot subscribe to sensors while disconnected")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poller != nil {
		if !c.poller.Stop(c.joinTimeout) {
			c.log.Warn("previous poller did not stop within join timeout")
		}
	}

	c.poller = NewPoller(c.link, c.Healthy, cb, c.pollInterval, c.log)
	c.poller.Start()
	c.log.Info("sensor poller armed")
}

// Disconnect stops the poller with a bounded join, then tears down the
// session. A poller that refuses to stop is logged and abandoned rather than
// blocking shutdown.
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	poller := c.poller
	c.poller = nil
	c.mu.Unlock()

	if poller != nil {
		if !poller.Stop(c.joinTimeout) {
			c.log.Warn("poller did not stop within join timeout, proceeding with shutdown")
		}
	}

	if err := c.link.Close(); err != nil {
		c.log.Warn("error closing hardware link", zap.Error(err))
	}
	c.state.Store(int32(StateDisconnected))
	c.log.Info("hardware link disconnected")
}

// Say speaks text through the robot. Degrades to a logged no-op while
// disconnected.
func (c *Client) Say(text string) error {
	if !c.Healthy() {
		c.log.Warn("cannot speak while disconnected", zap.String("text", snippet(text, 40)))
		return nil
	}
	return c.link.Say(text)
}

// GoToPosture moves the robot to a named posture. Degrades to a logged no-op
// while disconnected.
func (c *Client) GoToPosture(posture string, speed float64) error {
	if !c.Healthy() {
		c.log.Debug("cannot move while disconnected", zap.String("posture", posture))
		return nil
	}
	return c.link.GoToPosture(posture, speed)
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
