package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peermall/peerstore"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of peerstore",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("peerstore version %s\n", peerstore.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
