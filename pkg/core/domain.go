// Package core holds the storage-agnostic contracts of peerstore: the fixed
// logical key space of the KV tier, the durable medium contract, the
// content record contract of the async tier and the shared error kinds.
package core

import (
	"slices"
	"time"
)

// Key is a logical collection name of the KV tier.
// The set of keys is closed: only the constants below are valid.
type Key string

const (
	KeyAccounts             Key = "accounts"
	KeyCurrentAccount       Key = "current-account"
	KeyMarketplaces         Key = "marketplaces"
	KeyFavoriteMarketplaces Key = "favorite-marketplaces"
	KeyProducts             Key = "products"
	KeyMapNodes             Key = "map-nodes"
)

// physicalKeys is the static logical -> physical mapping.
var physicalKeys = map[Key]string{
	KeyAccounts:             "peermall_peer_accounts",
	KeyCurrentAccount:       "peermall_current_account",
	KeyMarketplaces:         "peermall_peermalls",
	KeyFavoriteMarketplaces: "peermall_favorite_peermalls",
	KeyProducts:             "peermall_products",
	KeyMapNodes:             "peermall_map_nodes",
}

var keyOrder = []Key{
	KeyAccounts,
	KeyCurrentAccount,
	KeyMarketplaces,
	KeyFavoriteMarketplaces,
	KeyProducts,
	KeyMapNodes,
}

// Keys returns every logical key in declaration order.
func Keys() []Key {
	return slices.Clone(keyOrder)
}

// Valid reports whether k belongs to the enumeration.
func (k Key) Valid() bool {
	_, ok := physicalKeys[k]
	return ok
}

// Physical returns the storage key k is persisted under.
func (k Key) Physical() string {
	return physicalKeys[k]
}

func (k Key) String() string {
	return string(k)
}

// ParseKey resolves a logical key name.
func ParseKey(name string) (Key, error) {
	k := Key(name)
	if !k.Valid() {
		return "", &OpError{Op: "parse", Key: name, Kind: ErrUnknownKey}
	}
	return k, nil
}

// KeyForPhysical maps a physical storage key back to its logical key.
func KeyForPhysical(physical string) (Key, bool) {
	for k, p := range physicalKeys {
		if p == physical {
			return k, true
		}
	}
	return "", false
}

// Meta carries the identity and audit stamps shared by every KV-tier entity.
type Meta struct {
	ID        string `json:"id" yaml:"id"`
	CreatedAt string `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// TimestampLayout matches the ISO-8601 form browsers emit (millisecond precision, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t as an ISO-8601 UTC string.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// EventType represents the type of change observed on a durable medium.
type EventType string

const (
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a physical key made outside this process.
type Event struct {
	Type      EventType
	Key       string // physical key
	Timestamp int64  // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return string(e.Type) + " " + e.Key
}
