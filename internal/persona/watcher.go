package persona

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the persona registry when profile files change on
// disk. Reloads are debounced: editors fire bursts of write events per save.
type Watcher struct {
	registry *Registry
	dir      string
	log      *zap.Logger

	watcher     *fsnotify.Watcher
	debounceDur time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher over the persona directory.
func NewWatcher(registry *Registry, dir string, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry:    registry,
		dir:         dir,
		log:         log.Named("persona-watch"),
		watcher:     fw,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine.
// running is set only once the loop is launched, so a failed Start leaves
// the watcher stopped and a later Stop is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn("could not ensure persona dir", zap.String("dir", w.dir), zap.Error(err))
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.running = true
	go w.run()
	w.log.Info("persona hot reload active", zap.String("dir", w.dir))
	return nil
}

// Stop ends the watch loop and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var pending bool
	var timer *time.Timer
	var timerCh <-chan time.Time

	arm := func() {
		pending = true
		if timer == nil {
			timer = time.NewTimer(w.debounceDur)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounceDur)
	}

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isProfileEvent(ev) {
				continue
			}
			w.log.Debug("persona file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			arm()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("persona watcher error", zap.Error(err))

		case <-timerCh:
			if !pending {
				continue
			}
			pending = false
			if err := w.registry.Reload(w.dir); err != nil {
				w.log.Error("persona reload failed", zap.Error(err))
			}
		}
	}
}

func isProfileEvent(ev fsnotify.Event) bool {
	lower := strings.ToLower(ev.Name)
	if !strings.HasSuffix(lower, ".yaml") && !strings.HasSuffix(lower, ".yml") {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
}
