package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1:2181"}, c.Zookeeper.Servers)
	assert.Equal(t, 10*time.Second, c.Zookeeper.SessionTimeout)
	assert.Equal(t, "/airavata", c.Zookeeper.Root)
	assert.Empty(t, c.Zookeeper.Digest)
	assert.Equal(t, StoreZookeeper, c.Store)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 10, c.Log.MaxSizeMB)
	assert.Equal(t, 3, c.Log.MaxBackups)
	assert.Equal(t, 7, c.Log.MaxAgeDays)
	assert.Equal(t, ":9090", c.Serve.MetricsAddr)
	assert.Equal(t, ":9091", c.Serve.GRPCAddr)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("JOBMONITOR_ZOOKEEPER_SERVERS", "zk1:2181,zk2:2181")
	t.Setenv("JOBMONITOR_ZOOKEEPER_SESSION_TIMEOUT", "3s")
	t.Setenv("JOBMONITOR_ZOOKEEPER_ROOT", "/test")
	t.Setenv("JOBMONITOR_STORE", "memory")
	t.Setenv("JOBMONITOR_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, c.Zookeeper.Servers)
	assert.Equal(t, 3*time.Second, c.Zookeeper.SessionTimeout)
	assert.Equal(t, "/test", c.Zookeeper.Root)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobmonitor.toml")
	content := `
store = "memory"

[zookeeper]
servers = ["a:2181"]
session_timeout = "5s"
root = "/custom"

[log]
level = "warn"
file = "/var/log/jobmonitor.log"
compress = true

[serve]
metrics_addr = ":19090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:2181"}, c.Zookeeper.Servers)
	assert.Equal(t, 5*time.Second, c.Zookeeper.SessionTimeout)
	assert.Equal(t, "/custom", c.Zookeeper.Root)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "/var/log/jobmonitor.log", c.Log.File)
	assert.True(t, c.Log.Compress)
	assert.Equal(t, ":19090", c.Serve.MetricsAddr)
	// Unset keys keep their defaults.
	assert.Equal(t, ":9091", c.Serve.GRPCAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Zookeeper: ZookeeperConfig{
				Servers:        []string{"127.0.0.1:2181"},
				SessionTimeout: time.Second,
				Root:           "/airavata",
			},
			Store: StoreZookeeper,
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "no servers",
			mutate:  func(c *Config) { c.Zookeeper.Servers = nil },
			wantErr: true,
		},
		{
			name:    "blank server",
			mutate:  func(c *Config) { c.Zookeeper.Servers = []string{" "} },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Zookeeper.SessionTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "relative root",
			mutate:  func(c *Config) { c.Zookeeper.Root = "airavata" },
			wantErr: true,
		},
		{
			name:    "root is slash",
			mutate:  func(c *Config) { c.Zookeeper.Root = "/" },
			wantErr: true,
		},
		{
			name:    "digest without password",
			mutate:  func(c *Config) { c.Zookeeper.Digest = "user" },
			wantErr: true,
		},
		{
			name:   "digest",
			mutate: func(c *Config) { c.Zookeeper.Digest = "user:pw" },
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store = "etcd" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := valid()
			test.mutate(&c)
			err := c.Validate()
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_InvalidRootWrapsSentinel(t *testing.T) {
	c := Config{
		Zookeeper: ZookeeperConfig{Servers: []string{"a"}, SessionTimeout: time.Second, Root: "/a//b"},
		Store:     StoreMemory,
	}
	assert.ErrorIs(t, c.Validate(), zookeeper.ErrInvalidPath)
}
