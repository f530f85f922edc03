package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	lcadapter "github.com/peermall/peerstore/pkg/adapters/lifecycle"
	"github.com/peermall/peerstore/pkg/content"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/metrics"
	"github.com/peermall/peerstore/pkg/peermall"
)

// watchStopTimeout bounds how long Close waits for the watcher to drain.
const watchStopTimeout = 10 * time.Second

// Store wires the KV facade, the collection managers and the content bridge
// over one durable medium and one record service.
type Store struct {
	KV           *kv.Facade
	Accounts     *peermall.Accounts
	Marketplaces *peermall.Marketplaces
	Favorites    *peermall.Favorites
	Products     *peermall.Products
	MapNodes     *peermall.MapNodes
	Content      *content.Bridge
	Metrics      *metrics.Metrics

	medium  core.Medium
	records core.RecordService
	logger  *slog.Logger

	cancel    context.CancelFunc
	watchDone chan struct{}
	closeOnce sync.Once
	closeErr  error

	external atomic.Int64
	mu       sync.Mutex
	lastKey  string
}

// Watching reports whether external changes are being propagated.
func (s *Store) Watching() bool {
	return s.watchDone != nil
}

// propagate re-publishes reactive collections whenever another process
// rewrites their key on the medium.
func (s *Store) propagate(ctx context.Context, w core.Watchable) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	src := lcadapter.NewSource(events)
	if err := src.Start(ctx); err != nil {
		return err
	}

	s.watchDone = make(chan struct{})
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.watchDone)
		for e := range src.Events() {
			if ce, ok := e.(core.Event); ok {
				s.apply(ce)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("change propagation failed", "error", err)
	}))
	return nil
}

func (s *Store) apply(e core.Event) {
	key, ok := core.KeyForPhysical(e.Key)
	if !ok {
		return
	}
	s.external.Add(1)
	s.mu.Lock()
	s.lastKey = string(key)
	s.mu.Unlock()
	s.Metrics.ExternalChange(string(key))
	s.logger.Debug("external change", "key", key, "type", e.Type)

	switch key {
	case core.KeyAccounts:
		s.Accounts.Refresh()
	case core.KeyMarketplaces:
		s.Marketplaces.Refresh()
	case core.KeyFavoriteMarketplaces:
		s.Favorites.Refresh()
	}
}

// Close stops change propagation, disposes every notifier and releases the
// medium and record service. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.watchDone != nil {
			select {
			case <-s.watchDone:
			case <-time.After(watchStopTimeout):
				s.logger.Warn("watcher did not stop in time")
			}
		}

		s.Accounts.Close()
		s.Marketplaces.Close()
		s.Favorites.Close()

		var errs []error
		if c, ok := s.records.(core.Closer); ok {
			errs = append(errs, c.Close())
		}
		if c, ok := s.medium.(core.Closer); ok {
			errs = append(errs, c.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// StoreState exposes internal state for observability.
type StoreState struct {
	KV              any    `json:"kv"`
	Content         any    `json:"content"`
	Watching        bool   `json:"watching"`
	ExternalChanges int64  `json:"external_changes"`
	LastExternalKey string `json:"last_external_key,omitempty"`
	Subscribers     int    `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	last := s.lastKey
	s.mu.Unlock()
	return StoreState{
		KV:              s.KV.State(),
		Content:         s.Content.State(),
		Watching:        s.Watching(),
		ExternalChanges: s.external.Load(),
		LastExternalKey: last,
		Subscribers:     s.Accounts.Subscribers() + s.Marketplaces.Subscribers() + s.Favorites.Subscribers(),
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "peerstore"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
