package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "peerstore",
	Short: "Inspect and edit a Peermall client data store",
	Long: `peerstore opens the KV tier (accounts, marketplaces, favorites, products,
map nodes) and the content tier of a Peermall data store.

Every flag can also be set through a PEERSTORE_* environment variable
(e.g. PEERSTORE_ADAPTER=sqlite), a .env file, or peerstore.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose || viper.GetBool("verbose") {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		return viper.BindPFlags(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.String("dir", "", "Data directory or database file (default: <project root>/.peerstore)")
	flags.String("config", "", "Config file (default: peerstore.yaml in the project root)")
	flags.String("adapter", "", "Durable medium: fs, sqlite, memory or none")
	flags.String("records", "", "Content record service: memory, sqlite, postgres or s3")
	flags.Int64("max-bytes", 0, "Size ceiling of the durable medium (0 = unbounded)")
	flags.String("postgres-dsn", "", "Connection string of the postgres record service")
	flags.String("s3-bucket", "", "Bucket of the s3 record service")
	flags.String("s3-region", "", "Region of the s3 record service")
	flags.String("s3-endpoint", "", "Custom endpoint of the s3 record service")
	flags.StringP("output", "o", "json", "Output format: json or yaml")
}

// initConfig reads .env files and binds PEERSTORE_* environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("peerstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
