package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikekulinski/jobmonitor/pkg/logging"
	"github.com/mikekulinski/jobmonitor/pkg/monitoring"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. JOBMONITOR_ZOOKEEPER_SERVERS.
const EnvPrefix = "JOBMONITOR"

// Store backends.
const (
	StoreZookeeper = "zookeeper"
	StoreMemory    = "memory"
)

type Config struct {
	Zookeeper ZookeeperConfig `mapstructure:"zookeeper"`
	// Store picks the backend: a ZooKeeper ensemble, or an in-process tree for dry runs.
	Store  string         `mapstructure:"store"`
	Memory MemoryConfig   `mapstructure:"memory"`
	Log    logging.Config `mapstructure:"log"`
	Serve  ServeConfig    `mapstructure:"serve"`
}

type MemoryConfig struct {
	// SnapshotDir keeps the in-memory tree between runs. Empty means nothing is kept.
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

type ZookeeperConfig struct {
	Servers        []string      `mapstructure:"servers"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	Root           string        `mapstructure:"root"`
	Digest         string        `mapstructure:"digest"`
}

type ServeConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("zookeeper.servers", []string{"127.0.0.1:2181"})
	v.SetDefault("zookeeper.session_timeout", 10*time.Second)
	v.SetDefault("zookeeper.root", monitoring.DefaultRoot)
	v.SetDefault("zookeeper.digest", "")
	v.SetDefault("store", StoreZookeeper)
	v.SetDefault("memory.snapshot_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logging.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logging.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logging.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
	v.SetDefault("serve.metrics_addr", ":9090")
	v.SetDefault("serve.grpc_addr", ":9091")
}

// New returns a viper instance with defaults and environment overrides wired in. When path is
// set, the file is read as well, with its type taken from the extension.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file [%s]: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the configuration from path (optional) and the environment, then validates it.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v. Flags bound to v take precedence.
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Zookeeper.Servers) == 0 {
		errs = append(errs, errors.New("zookeeper.servers must list at least one server"))
	}
	for _, s := range c.Zookeeper.Servers {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("zookeeper.servers contains an empty entry"))
			break
		}
	}
	if c.Zookeeper.SessionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("zookeeper.session_timeout must be positive, got %s", c.Zookeeper.SessionTimeout))
	}
	if err := zookeeper.ValidatePath(c.Zookeeper.Root); err != nil {
		errs = append(errs, fmt.Errorf("zookeeper.root: %w", err))
	}
	if c.Zookeeper.Digest != "" && !strings.Contains(c.Zookeeper.Digest, ":") {
		errs = append(errs, errors.New("zookeeper.digest must be of the form user:password"))
	}
	switch c.Store {
	case StoreZookeeper, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreZookeeper, StoreMemory, c.Store))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
