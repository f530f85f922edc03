package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peermall/peerstore/pkg/adapters/s3"
)

// ConfigFileName is the project file FindRoot looks for.
const ConfigFileName = "peerstore.yaml"

// Config is the file form of the store options.
type Config struct {
	Adapter      string        `yaml:"adapter,omitempty"`
	Path         string        `yaml:"path,omitempty"`
	MaxBytes     int64         `yaml:"max_bytes,omitempty"`
	Watch        bool          `yaml:"watch,omitempty"`
	WatchPattern string        `yaml:"watch_pattern,omitempty"`
	Records      RecordsConfig `yaml:"records,omitempty"`
}

// RecordsConfig configures the content record service.
type RecordsConfig struct {
	Adapter         string   `yaml:"adapter,omitempty"`
	PostgresDSN     string   `yaml:"postgres_dsn,omitempty"`
	ConnectAttempts int      `yaml:"connect_attempts,omitempty"`
	S3              S3Config `yaml:"s3,omitempty"`
}

// S3Config mirrors s3.Config with file tags.
type S3Config struct {
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the file settings into store options.
// Zero values leave the defaults in place.
func (c Config) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.MaxBytes > 0 {
		opts = append(opts, WithMaxBytes(c.MaxBytes))
	}
	if c.Watch {
		opts = append(opts, WithWatch(true))
	}
	if c.WatchPattern != "" {
		opts = append(opts, WithWatchPattern(c.WatchPattern))
	}
	if c.Records.Adapter != "" {
		opts = append(opts, WithRecordsAdapter(c.Records.Adapter))
	}
	if c.Records.PostgresDSN != "" {
		opts = append(opts, WithPostgresDSN(c.Records.PostgresDSN))
	}
	if c.Records.ConnectAttempts > 0 {
		opts = append(opts, WithConnectAttempts(c.Records.ConnectAttempts))
	}
	if c.Records.S3.Bucket != "" {
		s := c.Records.S3
		opts = append(opts, WithS3(s3.Config{
			Region:          s.Region,
			Bucket:          s.Bucket,
			Prefix:          s.Prefix,
			Endpoint:        s.Endpoint,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			PathStyle:       s.PathStyle,
		}))
	}
	return opts
}
