package peermall

import (
	"errors"
	"slices"
	"strings"
	"unicode"

	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/notify"
)

// DefaultCategory is assigned to marketplaces created without one.
const DefaultCategory = "general"

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Marketplace is a peer-owned storefront ("peermall").
type Marketplace struct {
	core.Meta   `yaml:",inline"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Address     string    `json:"address" yaml:"address"`
	OwnerID     string    `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
	Category    string    `json:"category" yaml:"category"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Location    *GeoPoint `json:"location,omitempty" yaml:"location,omitempty"`
	Rating      float64   `json:"rating" yaml:"rating"`
	Followers   int       `json:"followers" yaml:"followers"`
	Featured    bool      `json:"featured" yaml:"featured"`
}

// Clone implements notify.Cloner.
func (m Marketplace) Clone() Marketplace {
	c := m
	c.Tags = slices.Clone(m.Tags)
	if m.Location != nil {
		loc := *m.Location
		c.Location = &loc
	}
	return c
}

// MarketplacePatch carries the marketplace fields to insert or overwrite.
type MarketplacePatch struct {
	ID          string    `json:"id,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Address     *string   `json:"address,omitempty"`
	OwnerID     *string   `json:"ownerId,omitempty"`
	Category    *string   `json:"category,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Location    *GeoPoint `json:"location,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Followers   *int      `json:"followers,omitempty"`
	Featured    *bool     `json:"featured,omitempty"`
}

// Marketplaces manages the marketplace directory. New marketplaces are
// listed first.
type Marketplaces struct {
	m *collection.Manager[Marketplace, MarketplacePatch]
}

// NewMarketplaces creates the reactive marketplace manager.
func NewMarketplaces(facade *kv.Facade, opts ...collection.Option) *Marketplaces {
	schema := collection.Schema[Marketplace]{
		Key: core.KeyMarketplaces,
		Defaults: func() Marketplace {
			return Marketplace{Category: DefaultCategory, Tags: []string{}}
		},
		Normalize: normalizeMarketplace,
		Validate:  validateMarketplace,
		Placement: collection.Prepend,
	}
	opts = append(opts, collection.WithReactivity(true))
	return &Marketplaces{m: collection.New[Marketplace, MarketplacePatch](facade, schema, opts...)}
}

func normalizeMarketplace(m Marketplace) Marketplace {
	if m.Address == "" {
		m.Address = DeriveAddress(m.Title, m.ID)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return m
}

func validateMarketplace(m Marketplace) error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("title is required")
	}
	if m.Rating < 0 || m.Rating > 5 {
		return errors.New("rating must be between 0 and 5")
	}
	if m.Followers < 0 {
		return errors.New("followers must not be negative")
	}
	return nil
}

// DeriveAddress builds the public address of a marketplace from its title,
// suffixed with the first characters of its id so that equal titles differ.
func DeriveAddress(title, id string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "peermall"
	}
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix == "" {
		return slug
	}
	return slug + "-" + suffix
}

func (m *Marketplaces) GetAll() ([]Marketplace, error) {
	return m.m.GetAll()
}

func (m *Marketplaces) GetByID(id string) (Marketplace, bool, error) {
	return m.m.GetByID(id)
}

// Upsert creates the marketplace, or merges patch into the stored one when
// patch.ID names an existing marketplace. An empty address is derived from
// the title.
func (m *Marketplaces) Upsert(patch MarketplacePatch) (Marketplace, error) {
	return m.m.Upsert(patch)
}

func (m *Marketplaces) Delete(id string) error {
	return m.m.Delete(id)
}

// ByOwner returns the marketplaces owned by the given account.
func (m *Marketplaces) ByOwner(ownerID string) ([]Marketplace, error) {
	all, err := m.m.GetAll()
	return filter(all, func(x Marketplace) bool { return x.OwnerID == ownerID }), err
}

// ByAddress returns the marketplace published under address.
func (m *Marketplaces) ByAddress(address string) (Marketplace, bool, error) {
	all, err := m.m.GetAll()
	if err != nil {
		return Marketplace{}, false, err
	}
	idx := slices.IndexFunc(all, func(x Marketplace) bool { return x.Address == address })
	if idx < 0 {
		return Marketplace{}, false, nil
	}
	return all[idx], true, nil
}

// Subscribe delivers the current marketplaces to cb now and after every change.
func (m *Marketplaces) Subscribe(cb notify.Callback[Marketplace]) (unsubscribe func()) {
	return m.m.Notifier().Subscribe(cb)
}

func (m *Marketplaces) Refresh() { m.m.Refresh() }

func (m *Marketplaces) Close() { m.m.Close() }

func (m *Marketplaces) Subscribers() int { return m.m.Notifier().Len() }

// filter keeps the elements of items matching keep. The result is never nil.
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
