package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/peermall"
)

// manager is the subset of a collection manager the CLI drives.
type manager[T, P any] interface {
	GetAll() ([]T, error)
	GetByID(id string) (T, bool, error)
	Upsert(patch P) (T, error)
	Delete(id string) error
}

// collectionOps erases the entity type of a manager.
type collectionOps struct {
	list   func() (any, error)
	get    func(id string) (any, bool, error)
	upsert func(payload []byte) (any, error)
	delete func(id string) error
}

func opsFor[T, P any](m manager[T, P]) collectionOps {
	return collectionOps{
		list: func() (any, error) {
			return m.GetAll()
		},
		get: func(id string) (any, bool, error) {
			return m.GetByID(id)
		},
		upsert: func(payload []byte) (any, error) {
			var patch P
			if err := json.Unmarshal(payload, &patch); err != nil {
				return nil, fmt.Errorf("invalid patch: %w", err)
			}
			return m.Upsert(patch)
		},
		delete: m.Delete,
	}
}

// collectionNames lists the collections addressable from the CLI.
var collectionNames = []string{
	string(core.KeyAccounts),
	string(core.KeyMarketplaces),
	string(core.KeyFavoriteMarketplaces),
	string(core.KeyProducts),
	string(core.KeyMapNodes),
}

func collection(s *peerstore.Store, name string) (collectionOps, error) {
	switch core.Key(name) {
	case core.KeyAccounts:
		return opsFor[peermall.Account, peermall.AccountPatch](s.Accounts), nil
	case core.KeyMarketplaces:
		return opsFor[peermall.Marketplace, peermall.MarketplacePatch](s.Marketplaces), nil
	case core.KeyFavoriteMarketplaces:
		return opsFor[peermall.FavoriteMarketplace, peermall.FavoritePatch](s.Favorites), nil
	case core.KeyProducts:
		return opsFor[peermall.Product, peermall.ProductPatch](s.Products), nil
	case core.KeyMapNodes:
		return opsFor[peermall.MapNode, peermall.MapNodePatch](s.MapNodes), nil
	}
	return collectionOps{}, fmt.Errorf("unknown collection %q (one of: %s)", name, strings.Join(collectionNames, ", "))
}

// withCollection opens the store, resolves args[0] and runs fn.
func withCollection(args []string, fn func(c collectionOps) error) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	c, err := collection(s, args[0])
	if err != nil {
		return err
	}
	return fn(c)
}

func completeCollections(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return slices.Clone(collectionNames), cobra.ShellCompDirectiveNoFileComp
}

var listCmd = &cobra.Command{
	Use:               "list <collection>",
	Short:             "List every entity of a collection",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCollections,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args, func(c collectionOps) error {
			items, err := c.list()
			if err != nil {
				return err
			}
			return printOut(items)
		})
	},
}

var getCmd = &cobra.Command{
	Use:               "get <collection> <id>",
	Short:             "Print one entity",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeCollections,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args, func(c collectionOps) error {
			item, ok, err := c.get(args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %s: %w", args[0], args[1], core.ErrNotFound)
			}
			return printOut(item)
		})
	},
}

var upsertCmd = &cobra.Command{
	Use:   "upsert <collection> <json|->",
	Short: "Insert or shallow-merge an entity",
	Long: `Upsert merges a JSON object into the entity with the same "id", or
inserts it over the collection defaults when the id is unknown. A missing
"id" is generated. Pass "-" to read the object from stdin.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeCollections,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[1])
		if err != nil {
			return err
		}
		return withCollection(args, func(c collectionOps) error {
			item, err := c.upsert(payload)
			if err != nil {
				return err
			}
			return printOut(item)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:               "delete <collection> <id>",
	Short:             "Delete an entity (absent ids are not an error)",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeCollections,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(args, func(c collectionOps) error {
			if err := c.delete(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "deleted %s %s\n", args[0], args[1])
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every key of the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()
		return s.KV.Clear()
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys [pattern]",
	Short: "List the logical keys present in the store",
	Long:  `Keys lists present logical keys, optionally filtered by a doublestar pattern such as "favorite-*".`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		keys, err := s.KV.Keys(pattern)
		if err != nil {
			return err
		}
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, string(k))
		}
		return printOut(out)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, getCmd, upsertCmd, deleteCmd, clearCmd, keysCmd)
}
