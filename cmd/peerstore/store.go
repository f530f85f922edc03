package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/adapters/s3"
)

// openStore resolves the project, merges peerstore.yaml with flags and
// environment (flags win) and opens the store.
func openStore(extra ...peerstore.Option) (*peerstore.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	root, err := peerstore.FindRoot(wd)
	if err != nil {
		root = wd
	}

	var cfg peerstore.Config
	cfgPath := viper.GetString("config")
	if cfgPath == "" {
		if candidate := filepath.Join(root, peerstore.ConfigFileName); fileExists(candidate) {
			cfgPath = candidate
		}
	}
	if cfgPath != "" {
		if cfg, err = peerstore.LoadConfig(cfgPath); err != nil {
			return nil, err
		}
	}

	dir := viper.GetString("dir")
	if dir == "" && cfg.Path != "" {
		dir = cfg.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(cfgPath), dir)
		}
	}
	if dir == "" {
		dir = filepath.Join(root, peerstore.DataDirName)
	}

	opts := append(cfg.Options(), peerstore.WithLogger(slog.Default()))
	if v := viper.GetString("adapter"); v != "" {
		opts = append(opts, peerstore.WithAdapter(v))
	}
	if v := viper.GetString("records"); v != "" {
		opts = append(opts, peerstore.WithRecordsAdapter(v))
	}
	if v := viper.GetInt64("max-bytes"); v > 0 {
		opts = append(opts, peerstore.WithMaxBytes(v))
	}
	if v := viper.GetString("postgres-dsn"); v != "" {
		opts = append(opts, peerstore.WithPostgresDSN(v))
	}
	if v := viper.GetString("s3-bucket"); v != "" {
		opts = append(opts, peerstore.WithS3(s3.Config{
			Bucket:    v,
			Region:    viper.GetString("s3-region"),
			Endpoint:  viper.GetString("s3-endpoint"),
			PathStyle: viper.GetString("s3-endpoint") != "",
		}))
	}
	opts = append(opts, extra...)

	slog.Debug("opening store", "dir", dir, "config", cfgPath)
	return peerstore.New(dir, opts...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// printOut writes v to stdout in the selected output format.
func printOut(v any) error {
	return encode(os.Stdout, viper.GetString("output"), v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// readPayload returns the JSON argument, or stdin when it is "-".
func readPayload(arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(os.Stdin)
	}
	return []byte(arg), nil
}
