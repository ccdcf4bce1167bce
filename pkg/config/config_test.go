package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rechain/shardchain/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasThreeDataShards(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Equal(t, 3, cfg.Shards.Count)
	require.Equal(t, "badger", cfg.Storage.Engine)
}

func TestLoadConfigOverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shards:\n  count: 5\nrpc:\n  listen_address: 127.0.0.1:9999\n"), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Shards.Count)
	require.Equal(t, "127.0.0.1:9999", cfg.RPC.ListenAddress)
}

func TestLoadConfigWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().Shards.Count, cfg.Shards.Count)
}
