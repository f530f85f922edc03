package peermall

import (
	"errors"

	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
)

// MapNode kinds.
const (
	NodeStore    = "store"
	NodeEvent    = "event"
	NodeLandmark = "landmark"
)

// MapNode is a pin on the community map.
type MapNode struct {
	core.Meta     `yaml:",inline"`
	MarketplaceID string   `json:"marketplaceId,omitempty" yaml:"marketplaceId,omitempty"`
	Label         string   `json:"label" yaml:"label"`
	Kind          string   `json:"kind" yaml:"kind"`
	Location      GeoPoint `json:"location" yaml:"location"`
}

// MapNodePatch carries the map node fields to insert or overwrite.
type MapNodePatch struct {
	ID            string    `json:"id,omitempty"`
	MarketplaceID *string   `json:"marketplaceId,omitempty"`
	Label         *string   `json:"label,omitempty"`
	Kind          *string   `json:"kind,omitempty"`
	Location      *GeoPoint `json:"location,omitempty"`
}

// MapNodes manages map pins. It has no change notifier.
type MapNodes struct {
	m *collection.Manager[MapNode, MapNodePatch]
}

// NewMapNodes creates the map node manager.
func NewMapNodes(facade *kv.Facade, opts ...collection.Option) *MapNodes {
	schema := collection.Schema[MapNode]{
		Key: core.KeyMapNodes,
		Defaults: func() MapNode {
			return MapNode{Kind: NodeStore}
		},
		Validate: func(n MapNode) error {
			if n.Location.Lat < -90 || n.Location.Lat > 90 || n.Location.Lng < -180 || n.Location.Lng > 180 {
				return errors.New("location is out of range")
			}
			return nil
		},
	}
	opts = append(opts, collection.WithReactivity(false))
	return &MapNodes{m: collection.New[MapNode, MapNodePatch](facade, schema, opts...)}
}

func (n *MapNodes) GetAll() ([]MapNode, error) {
	return n.m.GetAll()
}

func (n *MapNodes) GetByID(id string) (MapNode, bool, error) {
	return n.m.GetByID(id)
}

func (n *MapNodes) Upsert(patch MapNodePatch) (MapNode, error) {
	return n.m.Upsert(patch)
}

func (n *MapNodes) Delete(id string) error {
	return n.m.Delete(id)
}

// ByMarketplace returns the pins of one marketplace.
func (n *MapNodes) ByMarketplace(marketplaceID string) ([]MapNode, error) {
	all, err := n.m.GetAll()
	return filter(all, func(x MapNode) bool { return x.MarketplaceID == marketplaceID }), err
}
