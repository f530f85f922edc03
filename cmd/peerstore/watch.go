package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/peermall"
)

var watchPattern string

// snapshotLine is what watch prints for every delivered snapshot.
type snapshotLine struct {
	Collection string `json:"collection" yaml:"collection"`
	At         string `json:"at" yaml:"at"`
	Items      any    `json:"items" yaml:"items"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print reactive collections whenever another process changes them",
	Long: `Watch subscribes to accounts, marketplaces and favorite-marketplaces and
prints a snapshot on start and after every external change, until interrupted.
Only the fs adapter can observe other processes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []peerstore.Option{peerstore.WithWatch(true)}
		if watchPattern != "" {
			opts = append(opts, peerstore.WithWatchPattern(watchPattern))
		}
		s, err := openStore(opts...)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()
		if !s.Watching() {
			return fmt.Errorf("the configured medium cannot be watched")
		}

		emit := func(key core.Key, items any) {
			line := snapshotLine{Collection: string(key), At: core.Timestamp(time.Now()), Items: items}
			if err := printOut(line); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
		}

		defer s.Accounts.Subscribe(func(items []peermall.Account) { emit(core.KeyAccounts, items) })()
		defer s.Marketplaces.Subscribe(func(items []peermall.Marketplace) { emit(core.KeyMarketplaces, items) })()
		defer s.Favorites.Subscribe(func(items []peermall.FavoriteMarketplace) { emit(core.KeyFavoriteMarketplaces, items) })()

		<-ctx.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", `Only watch keys matching a doublestar pattern (e.g. "favorite-*")`)
	rootCmd.AddCommand(watchCmd)
}
