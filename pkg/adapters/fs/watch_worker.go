package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/peermall/peerstore/pkg/core"
)

const debounceDelay = 50 * time.Millisecond

// Watch reports changes made to the directory by other processes until ctx
// is cancelled, then closes the returned channel. Writes made through this
// medium are not reported. The watcher runs under a supervisor that restarts
// it when fsnotify fails.
func (m *Medium) Watch(ctx context.Context) (<-chan core.Event, error) {
	pattern := m.config.WatchPattern
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, core.Errorf("watch", pattern, core.ErrInvalid, "bad watch pattern")
	}

	events := make(chan core.Event, 16)
	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(m, pattern, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   30 * time.Second,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("fs-medium", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(m.handleError))

	return events, nil
}

func (m *Medium) handleError(err error) {
	if m.config.ErrorHandler != nil {
		m.config.ErrorHandler(err)
		return
	}
	m.config.Logger.Error("fs watcher failure", "dir", m.dir, "error", err)
}

func (m *Medium) setWatcherActive(active bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.watcherActive = active
}

func (m *Medium) recordEvent(e core.Event) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.lastEvent = e.String()
}

type watchWorker struct {
	*worker.BaseWorker
	medium    *Medium
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(medium *Medium, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		medium:     medium,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.medium.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.medium.dir, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(debounceDelay)
	w.medium.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.medium.dir,
			"pattern":           w.pattern,
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.medium.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			attrs := []any{"error", err}
			if logger.Enabled(ctx, slog.LevelDebug) {
				attrs = append(attrs, "stack", string(debug.Stack()))
			}
			logger.Error("watcher panic", attrs...)
		}
	}()
	defer w.medium.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// Pending timers must finish before the owner closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.medium.handleError(wErr)
		}
	}
}

// process filters an fsnotify event down to a foreign change of a known key.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) bool {
	logger := w.medium.config.Logger
	name := filepath.Base(event.Name)
	if !isKeyFile(name) {
		return false
	}

	physical := strings.TrimSuffix(name, fileExt)
	key, ok := core.KeyForPhysical(physical)
	if !ok {
		logger.Debug("ignoring unknown key file", "name", name)
		return false
	}
	if match, _ := doublestar.Match(w.pattern, string(key)); !match {
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}
	if !w.medium.foreign(physical, eType) {
		return false
	}

	logger.Debug("external change", "key", key, "type", eType)
	w.send(ctx, core.Event{
		Type:      eType,
		Key:       physical,
		Timestamp: time.Now().Unix(),
	})
	return true
}

// send enqueues an event via the debouncer. A closed channel during
// shutdown is tolerated.
func (w *watchWorker) send(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
			w.medium.recordEvent(e)
		case <-ctx.Done():
		}
	})
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return core.EventModify
	default:
		return ""
	}
}
