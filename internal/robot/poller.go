package robot

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Callback receives one meaningful sensor event. The poller invokes it on a
// fresh goroutine: scheduled, never awaited, so a slow handler cannot stall
// sampling. Delivery is at-most-once with no backpressure.
type Callback func(SensorEvent)

// Poller samples the monitored event keys on a dedicated goroutine, filters
// noise, and hands meaningful events to the orchestration runtime. One
// failing key never stops the others; a failing iteration backs off and the
// loop resumes. Stop is cooperative, checked once per iteration.
type Poller struct {
	link     Link
	healthy  func() bool
	cb       Callback
	interval time.Duration
	log      *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	// lastSeen suppresses redelivery of an unchanged event value; the
	// robot's memory store holds values until replaced, so raw samples
	// repeat.
	lastSeen map[string]string
}

// NewPoller builds a poller over the monitored key set. healthy gates the
// loop: polling stops on its own once the connection is no longer usable.
func NewPoller(link Link, healthy func() bool, cb Callback, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{
		link:     link,
		healthy:  healthy,
		cb:       cb,
		interval: interval,
		log:      log.Named("poller"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]string),
	}
}

// Start launches the sampling goroutine. It returns immediately.
func (p *Poller) Start() {
	go p.run()
}

// Stop signals the loop and waits up to timeout for it to exit. Returns
// false when the join timed out.
func (p *Poller) Stop(timeout time.Duration) bool {
	select {
	case <-p.stopCh:
		// Already stopping.
	default:
		close(p.stopCh)
	}

	select {
	case <-p.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Poller) run() {
	defer close(p.doneCh)
	p.log.Info("sensor polling active", zap.Duration("interval", p.interval))

	for {
		select {
		case <-p.stopCh:
			p.log.Info("sensor polling stopped")
			return
		default:
		}

		if !p.healthy() {
			p.log.Info("connection no longer healthy, sensor polling stopped")
			return
		}

		if err := p.sampleAll(); err != nil {
			p.log.Error("sensor sampling iteration failed, backing off", zap.Error(err))
			select {
			case <-p.stopCh:
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case <-p.stopCh:
		case <-time.After(p.interval):
		}
	}
}

// sampleAll samples every monitored key once. Per-key errors are logged at
// debug and skipped; only an iteration-level panic surfaces as an error.
func (p *Poller) sampleAll() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in sampling loop: %v", r)
		}
	}()

	for _, key := range MonitoredEvents {
		value, sampleErr := p.link.EventValue(key)
		if sampleErr != nil {
			p.log.Debug("error sampling event key", zap.String("key", key), zap.Error(sampleErr))
			continue
		}
		if value == nil || !Meaningful(key, value) {
			// The key dropped out of its meaningful state (touch released,
			// store cleared); re-arm it so the next occurrence is a fresh
			// event.
			delete(p.lastSeen, key)
			continue
		}

		// The memory store repeats the last value on every sample; only a
		// change is a new event.
		fp := fmt.Sprintf("%v", value)
		if p.lastSeen[key] == fp {
			continue
		}
		p.lastSeen[key] = fp

		if key == EventWordRecognized {
			// Consume the utterance at the source so the user repeating the
			// exact phrase registers as a new event, not retention. On a
			// clear failure the fingerprint stays as the dedup fallback.
			if clearErr := p.link.ClearEvent(key); clearErr == nil {
				delete(p.lastSeen, key)
			} else {
				p.log.Debug("could not clear consumed event", zap.String("key", key), zap.Error(clearErr))
			}
		}

		ev := SensorEvent{Name: key, Value: value, Timestamp: time.Now()}
		p.log.Debug("delivering sensor event", zap.String("key", key))
		go p.cb(ev)
	}
	return nil
}
