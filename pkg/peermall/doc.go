// Package peermall defines the KV-tier domains of the marketplace client:
// peer accounts, marketplaces ("peermalls"), favorite marketplaces, products
// and map nodes. Each domain pairs an entity with an explicit patch type and
// wraps a collection.Manager configured with the domain's defaults.
//
// Reactivity is a per-domain decision. Accounts, Marketplaces and Favorites
// carry a change notifier and expose Subscribe; Products and MapNodes do not,
// and their types have no Subscribe method at all.
package peermall

// Ptr returns a pointer to v. It keeps patch literals short:
//
//	favorites.Add(peermall.FavoritePatch{ID: "m1", Title: peermall.Ptr("A")})
func Ptr[T any](v T) *T {
	return &v
}
