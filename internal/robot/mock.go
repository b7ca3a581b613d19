package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MockLink simulates the robot's control surface in process. It backs tests
// and robot-less development: event values are scripted through SetEvent /
// PushUtterance, speech and motion commands are recorded, and failures can
// be injected per call.
type MockLink struct {
	log *zap.Logger

	mu        sync.Mutex
	connected bool
	events    map[string]any

	spoken   []string
	postures []string

	// Failure injection.
	ConnectErr error
	SayErr     error
	PostureErr error
	EventErr   error
	ClearErr   error

	// SayDelay simulates speech duration.
	SayDelay time.Duration
}

// NewMockLink creates an empty simulated link.
func NewMockLink(log *zap.Logger) *MockLink {
	return &MockLink{
		log:    log.Named("mocklink"),
		events: make(map[string]any),
	}
}

// Connect simulates the session handshake.
func (m *MockLink) Connect(ctx context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	m.log.Debug("mock link connected")
	return nil
}

// Close simulates session teardown.
func (m *MockLink) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Connected reports the simulated session state.
func (m *MockLink) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Say records spoken text.
func (m *MockLink) Say(text string) error {
	if m.SayErr != nil {
		return m.SayErr
	}
	m.mu.Lock()
	connected := m.connected
	if connected {
		m.spoken = append(m.spoken, text)
	}
	m.mu.Unlock()
	if !connected {
		return fmt.Errorf("not connected")
	}
	if m.SayDelay > 0 {
		time.Sleep(m.SayDelay)
	}
	return nil
}

// GoToPosture records the requested posture.
func (m *MockLink) GoToPosture(posture string, speed float64) error {
	if m.PostureErr != nil {
		return m.PostureErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("not connected")
	}
	m.postures = append(m.postures, posture)
	return nil
}

// EventValue returns the scripted value for key, nil when unset.
func (m *MockLink) EventValue(key string) (any, error) {
	if m.EventErr != nil {
		return nil, m.EventErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[key], nil
}

// SetEvent scripts a raw event value.
func (m *MockLink) SetEvent(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[key] = value
}

// ClearEvent removes a scripted value.
func (m *MockLink) ClearEvent(key string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, key)
	return nil
}

// PushUtterance scripts a WordRecognized [text, confidence] pair.
func (m *MockLink) PushUtterance(text string, confidence float64) {
	m.SetEvent(EventWordRecognized, []any{text, confidence})
}

// Spoken returns a copy of everything spoken so far.
func (m *MockLink) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// Postures returns a copy of every posture commanded so far.
func (m *MockLink) Postures() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.postures))
	copy(out, m.postures)
	return out
}
