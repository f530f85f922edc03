package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peermall/peerstore/pkg/core"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		account, ok, err := s.Accounts.Current()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no signed-in account: %w", core.ErrNotFound)
		}
		return printOut(account)
	},
}

var signInCmd = &cobra.Command{
	Use:   "sign-in <account-id>",
	Short: "Mark an account as signed in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()
		return s.Accounts.SetCurrent(args[0])
	},
}

var signOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Clear the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()
		return s.Accounts.SignOut()
	},
}

func init() {
	sessionCmd.AddCommand(signInCmd, signOutCmd)
	rootCmd.AddCommand(sessionCmd)
}
