package platform

import (
	"context"
	"io"
	"log/slog"

	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/content"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/metrics"
	"github.com/peermall/peerstore/pkg/peermall"
)

// New assembles a Store.
//
//	store, err := peerstore.New("./data", peerstore.WithAdapter("fs"), peerstore.WithWatch(true))
//
// The uri argument is adapter-specific: the data directory for "fs", the
// database file or its directory for "sqlite", ignored by "memory".
func New(uri string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())

	medium, err := openMedium(uri, o)
	if err != nil {
		cancel()
		return nil, err
	}
	records, err := openRecords(ctx, uri, o, medium)
	if err != nil {
		cancel()
		if c, ok := medium.(core.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}

	m := metrics.New(o.registerer)
	facade := kv.New(medium, kv.WithLogger(o.logger), kv.WithMetrics(m))
	managerOpts := []collection.Option{
		collection.WithLogger(o.logger),
		collection.WithMetrics(m),
		collection.WithClock(o.clock),
	}

	s := &Store{
		KV:           facade,
		Accounts:     peermall.NewAccounts(facade, managerOpts...),
		Marketplaces: peermall.NewMarketplaces(facade, managerOpts...),
		Favorites:    peermall.NewFavorites(facade, managerOpts...),
		Products:     peermall.NewProducts(facade, managerOpts...),
		MapNodes:     peermall.NewMapNodes(facade, managerOpts...),
		Content: content.New(records,
			content.WithLogger(o.logger),
			content.WithMetrics(m),
			content.WithClock(o.clock),
		),
		Metrics: m,
		medium:  medium,
		records: records,
		logger:  o.logger,
		cancel:  cancel,
	}

	if o.watch {
		w, ok := medium.(core.Watchable)
		if !ok {
			o.logger.Warn("medium cannot be watched, external changes will not propagate", "adapter", o.adapter)
		} else if err := s.propagate(ctx, w); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return s, nil
}
