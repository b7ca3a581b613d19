// Package tasks runs clock-based actions: one-shot reminders and
// recurring daily jobs. Resolution is one minute, which is all a spoken
// "remind me at 9:30" needs.
package tasks

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// Task is one scheduled action. At is a local-time "HH:MM" string.
type Task struct {
	ID          string
	Name        string
	Description string
	At          string
	OneShot     bool
	Action      func()
}

// Scheduler fires due tasks from a single goroutine. Actions run inline
// on the scheduler goroutine and should hand off long work themselves.
type Scheduler struct {
	mu        sync.Mutex
	tasks     map[string]Task
	lastFired map[string]string // task id -> "HH:MM" minute it last ran

	checkInterval time.Duration
	now           func() time.Time
	log           *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewScheduler creates a stopped scheduler. Call Start to begin ticking.
func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:         make(map[string]Task),
		lastFired:     make(map[string]string),
		checkInterval: 20 * time.Second,
		now:           time.Now,
		log:           log.Named("scheduler"),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Add registers a task and returns its id. The time string must be a
// valid 24-hour "HH:MM"; a leading-zero-less hour is accepted.
func (s *Scheduler) Add(name, description, at string, oneShot bool, action func()) (string, error) {
	normalized, err := NormalizeClock(at)
	if err != nil {
		return "", err
	}

	t := Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		At:          normalized,
		OneShot:     oneShot,
		Action:      action,
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()

	s.log.Info("task scheduled",
		zap.String("id", t.ID), zap.String("name", name), zap.String("at", normalized))
	return t.ID, nil
}

// NormalizeClock validates a 24-hour "HH:MM" string and pads a
// single-digit hour.
func NormalizeClock(at string) (string, error) {
	m := clockPattern.FindStringSubmatch(at)
	if m == nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	if len(m[1]) == 1 {
		m[1] = "0" + m[1]
	}
	return m[1] + ":" + m[2], nil
}

// Remove deletes a task by id. Removing an unknown id is a no-op.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	delete(s.lastFired, id)
	s.mu.Unlock()
}

// Tasks returns a snapshot of the pending tasks.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// Start launches the tick loop. Safe to call once.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop halts the loop and waits for it to exit, up to timeout.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.fireDue(s.now())
		}
	}
}

// fireDue runs every task whose At matches now's minute, at most once
// per minute per task. One-shot tasks are removed before their action
// runs so a slow action cannot cause a second firing.
func (s *Scheduler) fireDue(now time.Time) {
	hhmm := now.Format("15:04")

	s.mu.Lock()
	var due []Task
	for id, t := range s.tasks {
		if t.At != hhmm || s.lastFired[id] == hhmm {
			continue
		}
		due = append(due, t)
		if t.OneShot {
			delete(s.tasks, id)
			delete(s.lastFired, id)
		} else {
			s.lastFired[id] = hhmm
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.log.Info("task due", zap.String("name", t.Name), zap.String("at", t.At))
		t.Action()
	}
}
