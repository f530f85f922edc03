package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/core"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage content records of a marketplace address",
}

// withContent opens the store and runs fn against its bridge.
func withContent(fn func(ctx context.Context, s *peerstore.Store) error) error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()
	return fn(context.Background(), s)
}

var contentListCmd = &cobra.Command{
	Use:   "list <address>",
	Short: "List the records of an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContent(func(ctx context.Context, s *peerstore.Store) error {
			records, err := s.Content.List(ctx, args[0])
			if err != nil {
				return err
			}
			return printOut(records)
		})
	},
}

var contentCreateCmd = &cobra.Command{
	Use:   "create <address> <json|->",
	Short: "Create a record; the service assigns its id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[1])
		if err != nil {
			return err
		}
		var rec core.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("invalid record: %w", err)
		}
		return withContent(func(ctx context.Context, s *peerstore.Store) error {
			created, err := s.Content.Create(ctx, args[0], rec)
			if err != nil {
				return err
			}
			return printOut(created)
		})
	},
}

var contentUpdateCmd = &cobra.Command{
	Use:   "update <id> <json|->",
	Short: "Apply a partial update to a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[1])
		if err != nil {
			return err
		}
		var patch core.Patch
		if err := json.Unmarshal(payload, &patch); err != nil {
			return fmt.Errorf("invalid patch: %w", err)
		}
		return withContent(func(ctx context.Context, s *peerstore.Store) error {
			return s.Content.Update(ctx, args[0], patch)
		})
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContent(func(ctx context.Context, s *peerstore.Store) error {
			return s.Content.Delete(ctx, args[0])
		})
	},
}

func init() {
	contentCmd.AddCommand(contentListCmd, contentCreateCmd, contentUpdateCmd, contentDeleteCmd)
	rootCmd.AddCommand(contentCmd)
}
