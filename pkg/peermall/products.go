package peermall

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
)

// Product statuses.
const (
	StatusDraft   = "draft"
	StatusActive  = "active"
	StatusSoldOut = "sold-out"
)

// DefaultCurrency is assigned to products created without one.
const DefaultCurrency = "KRW"

// Product is an item offered by a marketplace. Prices are exact decimals and
// are stored as JSON strings.
type Product struct {
	core.Meta     `yaml:",inline"`
	MarketplaceID string            `json:"marketplaceId" yaml:"marketplaceId"`
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	Price         decimal.Decimal   `json:"price" yaml:"price"`
	Currency      string            `json:"currency" yaml:"currency"`
	Stock         int               `json:"stock" yaml:"stock"`
	Images        []string          `json:"images" yaml:"images"`
	Options       map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Status        string            `json:"status" yaml:"status"`
}

// Clone implements notify.Cloner.
func (p Product) Clone() Product {
	c := p
	c.Images = slices.Clone(p.Images)
	c.Options = maps.Clone(p.Options)
	return c
}

// ProductPatch carries the product fields to insert or overwrite.
type ProductPatch struct {
	ID            string             `json:"id,omitempty"`
	MarketplaceID *string            `json:"marketplaceId,omitempty"`
	Name          *string            `json:"name,omitempty"`
	Description   *string            `json:"description,omitempty"`
	Price         *decimal.Decimal   `json:"price,omitempty"`
	Currency      *string            `json:"currency,omitempty"`
	Stock         *int               `json:"stock,omitempty"`
	Images        *[]string          `json:"images,omitempty"`
	Options       *map[string]string `json:"options,omitempty"`
	Status        *string            `json:"status,omitempty"`
}

// Products manages the product catalogue. It has no change notifier.
type Products struct {
	m *collection.Manager[Product, ProductPatch]
}

// NewProducts creates the products manager.
func NewProducts(facade *kv.Facade, opts ...collection.Option) *Products {
	schema := collection.Schema[Product]{
		Key: core.KeyProducts,
		Defaults: func() Product {
			return Product{
				Price:    decimal.Zero,
				Currency: DefaultCurrency,
				Images:   []string{},
				Status:   StatusDraft,
			}
		},
		Normalize: func(p Product) Product {
			p.Currency = strings.ToUpper(p.Currency)
			if p.Images == nil {
				p.Images = []string{}
			}
			return p
		},
		Validate: validateProduct,
	}
	opts = append(opts, collection.WithReactivity(false))
	return &Products{m: collection.New[Product, ProductPatch](facade, schema, opts...)}
}

func validateProduct(p Product) error {
	if p.Price.IsNegative() {
		return fmt.Errorf("price %s is negative", p.Price)
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if !slices.Contains([]string{StatusDraft, StatusActive, StatusSoldOut}, p.Status) {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	return nil
}

func (p *Products) GetAll() ([]Product, error) {
	return p.m.GetAll()
}

func (p *Products) GetByID(id string) (Product, bool, error) {
	return p.m.GetByID(id)
}

func (p *Products) Upsert(patch ProductPatch) (Product, error) {
	return p.m.Upsert(patch)
}

func (p *Products) Delete(id string) error {
	return p.m.Delete(id)
}

// ByMarketplace returns the products of one marketplace.
func (p *Products) ByMarketplace(marketplaceID string) ([]Product, error) {
	all, err := p.m.GetAll()
	return filter(all, func(x Product) bool { return x.MarketplaceID == marketplaceID }), err
}
