package peermall

import (
	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/notify"
)

// FavoriteMarketplace is the denormalized card kept for a favorited
// marketplace. Its ID is the marketplace ID.
type FavoriteMarketplace struct {
	core.Meta `yaml:",inline"`
	Title     string `json:"title" yaml:"title"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Category  string `json:"category,omitempty" yaml:"category,omitempty"`
}

// FavoritePatch carries the favorite fields to insert or overwrite.
type FavoritePatch struct {
	ID       string  `json:"id,omitempty"`
	Title    *string `json:"title,omitempty"`
	Address  *string `json:"address,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Favorites manages the favorite marketplaces, most recent first.
type Favorites struct {
	m *collection.Manager[FavoriteMarketplace, FavoritePatch]
}

// NewFavorites creates the reactive favorites manager.
func NewFavorites(facade *kv.Facade, opts ...collection.Option) *Favorites {
	schema := collection.Schema[FavoriteMarketplace]{
		Key:       core.KeyFavoriteMarketplaces,
		Placement: collection.Prepend,
	}
	opts = append(opts, collection.WithReactivity(true))
	return &Favorites{m: collection.New[FavoriteMarketplace, FavoritePatch](facade, schema, opts...)}
}

func (f *Favorites) GetAll() ([]FavoriteMarketplace, error) {
	return f.m.GetAll()
}

func (f *Favorites) GetByID(id string) (FavoriteMarketplace, bool, error) {
	return f.m.GetByID(id)
}

// Upsert adds or updates a favorite.
func (f *Favorites) Upsert(patch FavoritePatch) (FavoriteMarketplace, error) {
	return f.m.Upsert(patch)
}

// Delete removes a favorite. Removing an id that is not a favorite still
// rewrites the collection and notifies subscribers.
func (f *Favorites) Delete(id string) error {
	return f.m.Delete(id)
}

// Add favorites the marketplace described by patch.
func (f *Favorites) Add(patch FavoritePatch) (FavoriteMarketplace, error) {
	return f.m.Upsert(patch)
}

// Remove is Delete.
func (f *Favorites) Remove(id string) error {
	return f.m.Delete(id)
}

// IsFavorite reports whether the marketplace id is a favorite.
func (f *Favorites) IsFavorite(id string) (bool, error) {
	return f.m.Has(id)
}

// Toggle favorites mp when it is not a favorite and unfavorites it otherwise.
// It returns the resulting state.
func (f *Favorites) Toggle(mp Marketplace) (bool, error) {
	fav, err := f.m.Has(mp.ID)
	if err != nil {
		return false, err
	}
	if fav {
		return false, f.m.Delete(mp.ID)
	}
	_, err = f.m.Upsert(FavoriteFrom(mp))
	return err == nil, err
}

// FavoriteFrom copies the card fields of mp into a patch.
func FavoriteFrom(mp Marketplace) FavoritePatch {
	return FavoritePatch{
		ID:       mp.ID,
		Title:    Ptr(mp.Title),
		Address:  Ptr(mp.Address),
		ImageURL: Ptr(mp.ImageURL),
		Category: Ptr(mp.Category),
	}
}

// Subscribe delivers the current favorites to cb now and after every change.
func (f *Favorites) Subscribe(cb notify.Callback[FavoriteMarketplace]) (unsubscribe func()) {
	return f.m.Notifier().Subscribe(cb)
}

func (f *Favorites) Refresh() { f.m.Refresh() }

func (f *Favorites) Close() { f.m.Close() }

func (f *Favorites) Subscribers() int { return f.m.Notifier().Len() }
