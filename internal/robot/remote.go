package robot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RemoteLink talks to the control bridge daemon running on the robot over a
// single long-lived TCP connection. The wire format is JSON lines: each
// request carries an id, each response echoes it. Calls are blocking; a
// reader goroutine routes responses to the waiting caller.
type RemoteLink struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
	log         *zap.Logger

	mu         sync.Mutex
	conn       net.Conn
	nextID     uint64
	pending    map[uint64]chan bridgeResponse
	readerDone chan struct{}
}

type bridgeRequest struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type bridgeResponse struct {
	ID     uint64 `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewRemoteLink creates a link to the bridge at addr (host:port).
func NewRemoteLink(addr string, dialTimeout time.Duration, log *zap.Logger) *RemoteLink {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &RemoteLink{
		addr:        addr,
		dialTimeout: dialTimeout,
		callTimeout: 30 * time.Second,
		log:         log.Named("link"),
	}
}

// Connect dials the bridge and performs the hello handshake. ctx bounds the
// whole attempt.
func (l *RemoteLink) Connect(ctx context.Context) error {
	l.mu.Lock()
	if l.conn != nil {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	dialer := net.Dialer{Timeout: l.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to dial bridge at %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.conn = conn
	l.pending = make(map[uint64]chan bridgeResponse)
	l.readerDone = make(chan struct{})
	l.mu.Unlock()

	go l.readLoop(conn)

	if _, err := l.call("hello", nil); err != nil {
		l.Close()
		return fmt.Errorf("bridge handshake failed: %w", err)
	}

	l.log.Info("control bridge session established", zap.String("addr", l.addr))
	return nil
}

// Close tears down the session and fails any in-flight calls.
func (l *RemoteLink) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	done := l.readerDone
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			l.log.Warn("bridge reader did not stop in time")
		}
	}
	return err
}

// Connected reports whether the session is usable.
func (l *RemoteLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Say speaks text, returning once the bridge reports speech complete.
func (l *RemoteLink) Say(text string) error {
	_, err := l.call("tts.say", map[string]any{"text": text})
	return err
}

// GoToPosture moves the robot to a named posture.
func (l *RemoteLink) GoToPosture(posture string, speed float64) error {
	_, err := l.call("motion.goToPosture", map[string]any{
		"posture": posture,
		"speed":   speed,
	})
	return err
}

// EventValue samples an event key from the robot's memory store.
func (l *RemoteLink) EventValue(key string) (any, error) {
	return l.call("memory.getData", map[string]any{"key": key})
}

// ClearEvent removes an event key from the robot's memory store.
func (l *RemoteLink) ClearEvent(key string) error {
	_, err := l.call("memory.removeData", map[string]any{"key": key})
	return err
}

// call sends one request and waits for its response or the call timeout.
func (l *RemoteLink) call(method string, params map[string]any) (any, error) {
	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	l.nextID++
	id := l.nextID
	ch := make(chan bridgeResponse, 1)
	l.pending[id] = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	}()

	payload, err := json.Marshal(bridgeRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	payload = append(payload, '\n')

	l.mu.Lock()
	_, err = conn.Write(payload)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("bridge write failed: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed during %s", method)
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("bridge error for %s: %s", method, resp.Error)
		}
		return resp.Result, nil
	case <-time.After(l.callTimeout):
		return nil, fmt.Errorf("bridge call %s timed out after %s", method, l.callTimeout)
	}
}

// readLoop routes responses to waiting callers until the connection dies.
func (l *RemoteLink) readLoop(conn net.Conn) {
	defer func() {
		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		done := l.readerDone
		for id, ch := range l.pending {
			close(ch)
			delete(l.pending, id)
		}
		l.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp bridgeResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			l.log.Debug("dropping undecodable bridge frame", zap.Error(err))
			continue
		}
		l.mu.Lock()
		ch, ok := l.pending[resp.ID]
		l.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	if err := scanner.Err(); err != nil {
		l.log.Warn("bridge connection lost", zap.Error(err))
	}
}
