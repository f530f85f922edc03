package peermall_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/adapters/memory"
	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/peermall"
)

func newFacade() *kv.Facade {
	return kv.New(memory.NewMedium(0))
}

func collectionIDs(id string) collection.Option {
	return collection.WithIDGenerator(func() string { return id })
}

func TestFavorites_SubscribeScenario(t *testing.T) {
	favorites := peermall.NewFavorites(newFacade())

	var snapshots [][]peermall.FavoriteMarketplace
	unsubscribe := favorites.Subscribe(func(s []peermall.FavoriteMarketplace) {
		snapshots = append(snapshots, s)
	})

	_, err := favorites.Add(peermall.FavoritePatch{ID: "m1", Title: peermall.Ptr("A")})
	require.NoError(t, err)
	require.NoError(t, favorites.Remove("m1"))

	require.Len(t, snapshots, 3)
	assert.Empty(t, snapshots[0])
	require.Len(t, snapshots[1], 1)
	assert.Equal(t, "m1", snapshots[1][0].ID)
	assert.Equal(t, "A", snapshots[1][0].Title)
	assert.Empty(t, snapshots[2])

	unsubscribe()
	assert.Equal(t, 0, favorites.Subscribers())
}

func TestFavorites_Toggle(t *testing.T) {
	favorites := peermall.NewFavorites(newFacade())
	mp := peermall.Marketplace{Meta: core.Meta{ID: "m9"}, Title: "Night market", Address: "night-market", Category: "food"}

	on, err := favorites.Toggle(mp)
	require.NoError(t, err)
	assert.True(t, on)

	fav, ok, err := favorites.GetByID("m9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "night-market", fav.Address)
	assert.Equal(t, "food", fav.Category)

	on, err = favorites.Toggle(mp)
	require.NoError(t, err)
	assert.False(t, on)

	is, err := favorites.IsFavorite("m9")
	require.NoError(t, err)
	assert.False(t, is)
}

func TestFavorites_NewestFirst(t *testing.T) {
	favorites := peermall.NewFavorites(newFacade())
	for _, id := range []string{"m1", "m2", "m3"} {
		_, err := favorites.Add(peermall.FavoritePatch{ID: id, Title: peermall.Ptr(id)})
		require.NoError(t, err)
	}
	all, err := favorites.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m3", all[0].ID)
	assert.Equal(t, "m1", all[2].ID)
}

func TestAccounts_CurrentSession(t *testing.T) {
	accounts := peermall.NewAccounts(newFacade())

	_, ok, err := accounts.Current()
	require.NoError(t, err)
	assert.False(t, ok)

	acc, err := accounts.Upsert(peermall.AccountPatch{Name: peermall.Ptr("Mina"), Email: peermall.Ptr("mina@example.com")})
	require.NoError(t, err)
	assert.Equal(t, peermall.RoleMember, acc.Role)

	require.NoError(t, accounts.SetCurrent(acc.ID))
	current, ok, err := accounts.Current()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Mina", current.Name)

	require.NoError(t, accounts.SignOut())
	_, ok, err = accounts.Current()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccounts_SessionUsesClock(t *testing.T) {
	facade := newFacade()
	signedIn := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	accounts := peermall.NewAccounts(facade, collection.WithClock(func() time.Time { return signedIn }))

	acc, err := accounts.Upsert(peermall.AccountPatch{Name: peermall.Ptr("Mina")})
	require.NoError(t, err)
	require.NoError(t, accounts.SetCurrent(acc.ID))

	session, ok, err := kv.Load[peermall.Session](facade, core.KeyCurrentAccount)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, acc.ID, session.AccountID)
	assert.Equal(t, "2026-03-14T09:30:00.000Z", session.SignedInAt)
}

func TestAccounts_Validation(t *testing.T) {
	accounts := peermall.NewAccounts(newFacade())

	_, err := accounts.Upsert(peermall.AccountPatch{Role: peermall.Ptr("overlord")})
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = accounts.Upsert(peermall.AccountPatch{Wallet: &peermall.Wallet{Network: "eth"}})
	assert.ErrorIs(t, err, core.ErrInvalid)
}

func TestAccounts_SnapshotsAreCopies(t *testing.T) {
	accounts := peermall.NewAccounts(newFacade())
	_, err := accounts.Upsert(peermall.AccountPatch{ID: "a1", Interests: &[]string{"tea"}})
	require.NoError(t, err)

	var first, second []peermall.Account
	accounts.Subscribe(func(s []peermall.Account) { first = s })
	accounts.Subscribe(func(s []peermall.Account) { second = s })

	first[0].Interests[0] = "coffee"
	assert.Equal(t, "tea", second[0].Interests[0])
}

func TestMarketplaces_DerivedAddressAndDefaults(t *testing.T) {
	marketplaces := peermall.NewMarketplaces(newFacade(), collectionIDs("3f2a9c1e-aaaa-bbbb"))

	mp, err := marketplaces.Upsert(peermall.MarketplacePatch{Title: peermall.Ptr("Seoul Tea House!"), OwnerID: peermall.Ptr("acc1")})
	require.NoError(t, err)
	assert.Equal(t, "seoul-tea-house-3f2a9c1e", mp.Address)
	assert.Equal(t, peermall.DefaultCategory, mp.Category)
	assert.NotNil(t, mp.Tags)

	// Updates keep the stored address.
	mp, err = marketplaces.Upsert(peermall.MarketplacePatch{ID: mp.ID, Title: peermall.Ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "seoul-tea-house-3f2a9c1e", mp.Address)

	found, ok, err := marketplaces.ByAddress("seoul-tea-house-3f2a9c1e")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Renamed", found.Title)

	owned, err := marketplaces.ByOwner("acc1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)
	none, err := marketplaces.ByOwner("acc2")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = marketplaces.Upsert(peermall.MarketplacePatch{Title: peermall.Ptr("  ")})
	assert.ErrorIs(t, err, core.ErrInvalid)
}

func TestDeriveAddress(t *testing.T) {
	assert.Equal(t, "peermall", peermall.DeriveAddress("!!!", ""))
	assert.Equal(t, "a-b-12345678", peermall.DeriveAddress(" A  b ", "1234-5678-90"))
	assert.Equal(t, "카페-x1", peermall.DeriveAddress("카페", "x1"))
}

func TestProducts_DecimalPriceAndValidation(t *testing.T) {
	facade := newFacade()
	products := peermall.NewProducts(facade)

	p, err := products.Upsert(peermall.ProductPatch{
		MarketplaceID: peermall.Ptr("m1"),
		Name:          peermall.Ptr("Green tea"),
		Price:         peermall.Ptr(decimal.RequireFromString("12.30")),
		Currency:      peermall.Ptr("usd"),
	})
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.3")))
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, peermall.StatusDraft, p.Status)
	assert.NotNil(t, p.Images)

	raw, _, err := facade.Raw(core.KeyProducts)
	require.NoError(t, err)
	assert.Contains(t, raw, `"price":"12.3"`)

	_, err = products.Upsert(peermall.ProductPatch{Price: peermall.Ptr(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, core.ErrInvalid)
	_, err = products.Upsert(peermall.ProductPatch{Stock: peermall.Ptr(-2)})
	assert.ErrorIs(t, err, core.ErrInvalid)
	_, err = products.Upsert(peermall.ProductPatch{Status: peermall.Ptr("hidden")})
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = products.Upsert(peermall.ProductPatch{MarketplaceID: peermall.Ptr("m2"), Name: peermall.Ptr("Cup")})
	require.NoError(t, err)
	inM1, err := products.ByMarketplace("m1")
	require.NoError(t, err)
	require.Len(t, inM1, 1)
	assert.Equal(t, "Green tea", inM1[0].Name)
}

func TestMapNodes(t *testing.T) {
	nodes := peermall.NewMapNodes(newFacade())

	n, err := nodes.Upsert(peermall.MapNodePatch{
		MarketplaceID: peermall.Ptr("m1"),
		Label:         peermall.Ptr("Gate"),
		Location:      &peermall.GeoPoint{Lat: 37.57, Lng: 126.98},
	})
	require.NoError(t, err)
	assert.Equal(t, peermall.NodeStore, n.Kind)

	_, err = nodes.Upsert(peermall.MapNodePatch{Location: &peermall.GeoPoint{Lat: 91}})
	assert.ErrorIs(t, err, core.ErrInvalid)

	inM1, err := nodes.ByMarketplace("m1")
	require.NoError(t, err)
	assert.Len(t, inM1, 1)

	require.NoError(t, nodes.Delete(n.ID))
	all, err := nodes.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}
