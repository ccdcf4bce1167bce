package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a shardchain node.
type Config struct {
	Node      NodeConfig      `mapstructure:"node"`
	Shards    ShardsConfig    `mapstructure:"shards"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Gossip    GossipConfig    `mapstructure:"gossip"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// NodeConfig holds node-specific configuration.
type NodeConfig struct {
	ID       string `mapstructure:"id"`
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
}

// ShardsConfig controls how many parallel shard instances this node
// runs, in addition to the implicit block shard at index 0.
type ShardsConfig struct {
	Count             int           `mapstructure:"count"`
	CatchUpPoll       time.Duration `mapstructure:"catch_up_poll"`
	CollectionTimeout time.Duration `mapstructure:"collection_timeout"`
}

// StorageConfig holds per-shard storage configuration.
type StorageConfig struct {
	Engine    string `mapstructure:"engine"`
	CacheSize int64  `mapstructure:"cache_size"`
	Sync      bool   `mapstructure:"sync"`
}

// ConsensusConfig holds round-driving configuration for every shard's
// consensus actor.
type ConsensusConfig struct {
	BlockTime    time.Duration `mapstructure:"block_time"`
	RoundTimeout time.Duration `mapstructure:"round_timeout"`
}

// GossipConfig holds devp2p transport configuration.
type GossipConfig struct {
	Port     int      `mapstructure:"port"`
	Seeds    []string `mapstructure:"seeds"`
	MaxPeers int      `mapstructure:"max_peers"`
}

// RPCConfig holds catch-up grpc service configuration.
type RPCConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// APIConfig holds the status/debug REST surface configuration.
type APIConfig struct {
	REST RESTConfig `mapstructure:"rest"`
}

// RESTConfig holds REST API configuration.
type RESTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultConfig returns a default configuration for a single-validator
// node running three data shards.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:       "",
			DataDir:  "./data",
			LogLevel: "info",
		},
		Shards: ShardsConfig{
			Count:             3,
			CatchUpPoll:       10 * time.Millisecond,
			CollectionTimeout: 1 * time.Second,
		},
		Storage: StorageConfig{
			Engine:    "badger",
			CacheSize: 100 * 1024 * 1024,
			Sync:      true,
		},
		Consensus: ConsensusConfig{
			BlockTime:    1 * time.Second,
			RoundTimeout: 1 * time.Second,
		},
		Gossip: GossipConfig{
			Port:     26656,
			Seeds:    []string{},
			MaxPeers: 50,
		},
		RPC: RPCConfig{
			ListenAddress: "0.0.0.0:9090",
		},
		API: APIConfig{
			REST: RESTConfig{
				Enabled: true,
				Address: "0.0.0.0:1317",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig loads configuration from file and environment variables,
// layered over DefaultConfig.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	v.SetDefault("node.data_dir", cfg.Node.DataDir)
	v.SetDefault("node.log_level", cfg.Node.LogLevel)
	v.SetDefault("shards.count", cfg.Shards.Count)
	v.SetDefault("shards.catch_up_poll", cfg.Shards.CatchUpPoll)
	v.SetDefault("shards.collection_timeout", cfg.Shards.CollectionTimeout)
	v.SetDefault("storage.engine", cfg.Storage.Engine)
	v.SetDefault("storage.cache_size", cfg.Storage.CacheSize)
	v.SetDefault("storage.sync", cfg.Storage.Sync)
	v.SetDefault("consensus.block_time", cfg.Consensus.BlockTime)
	v.SetDefault("consensus.round_timeout", cfg.Consensus.RoundTimeout)
	v.SetDefault("gossip.port", cfg.Gossip.Port)
	v.SetDefault("gossip.seeds", cfg.Gossip.Seeds)
	v.SetDefault("gossip.max_peers", cfg.Gossip.MaxPeers)
	v.SetDefault("rpc.listen_address", cfg.RPC.ListenAddress)
	v.SetDefault("api.rest.enabled", cfg.API.REST.Enabled)
	v.SetDefault("api.rest.address", cfg.API.REST.Address)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetEnvPrefix("SHARDCHAIN")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}
