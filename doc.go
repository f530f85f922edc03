// Package peerstore is the composition root of the Peermall client data layer.
//
// It connects two storage tiers behind one Store:
//
//   - A synchronous KV tier: a closed set of logical keys mapped to physical
//     keys on a durable medium (directory, SQLite file or memory). Collection
//     managers keep accounts, marketplaces, favorites, products and map nodes
//     there, each as a JSON array of entities with upsert-by-id and shallow
//     merge semantics. Accounts, marketplaces and favorites notify
//     subscribers with a fresh snapshot after every write.
//   - An asynchronous content tier: records scoped to a marketplace address,
//     delegated to a remote record service (memory, SQLite, PostgreSQL or S3)
//     through a bridge that turns failures into safe defaults.
//
// Usage:
//
//	store, err := peerstore.New("./.peerstore",
//		peerstore.WithWatch(true),
//		peerstore.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	unsubscribe := store.Favorites.Subscribe(func(favs []peermall.FavoriteMarketplace) {
//		render(favs)
//	})
//	defer unsubscribe()
package peerstore
