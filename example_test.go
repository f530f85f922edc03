package peerstore_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/peermall"
)

// Example_favorites shows the reactive favorites collection.
func Example_favorites() {
	store, err := peerstore.New("", peerstore.WithAdapter(peerstore.AdapterMemory))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	unsubscribe := store.Favorites.Subscribe(func(favs []peermall.FavoriteMarketplace) {
		fmt.Println("favorites:", len(favs))
	})
	defer unsubscribe()

	mp, err := store.Marketplaces.Upsert(peermall.MarketplacePatch{Title: peermall.Ptr("Gwangjang Market")})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := store.Favorites.Toggle(mp); err != nil {
		log.Fatal(err)
	}
	if _, err := store.Favorites.Toggle(mp); err != nil {
		log.Fatal(err)
	}
	// Output:
	// favorites: 0
	// favorites: 1
	// favorites: 0
}

// Example_content shows the content bridge on a directory store.
func Example_content() {
	dir, err := os.MkdirTemp("", "peerstore-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	store, err := peerstore.New(dir, peerstore.WithRecordsAdapter(peerstore.RecordsSQLite))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Content.Create(ctx, "gwangjang-market", core.Record{Kind: "post", Title: "Opening hours"}); err != nil {
		log.Fatal(err)
	}
	records, err := store.Content.List(ctx, "gwangjang-market")
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range records {
		fmt.Println(r.Kind, r.Title)
	}
	// Output:
	// post Opening hours
}
