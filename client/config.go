package client

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the client's initialization options.
type Config struct {
	// StorePath is the filesystem path of the persistent store.
	StorePath string
	// RpcEndpoint is the remote node URL, handed to the transport dialer.
	RpcEndpoint string
	// RpcTimeout bounds every RPC call.
	RpcTimeout time.Duration
	// MaxBlocksPerRequest is a soft cap hint forwarded to the node.
	MaxBlocksPerRequest uint32
	// DiscardGraceBlocks is the transaction discard window.
	DiscardGraceBlocks uint32
	// LogLevel selects the zap level ("debug", "info", "warn", "error").
	LogLevel string
}

const (
	defaultRpcTimeout = 30 * time.Second
	defaultLogLevel   = "info"
)

// DefaultConfig returns a config with every knob at its default.
func DefaultConfig() Config {
	return Config{
		RpcTimeout: defaultRpcTimeout,
		LogLevel:   defaultLogLevel,
	}
}

// withDefaults fills the zero valued knobs.
func (c Config) withDefaults() Config {
	if c.RpcTimeout == 0 {
		c.RpcTimeout = defaultRpcTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c
}

// LoadConfig reads a config file (toml, yaml or json by extension) with
// the keys of the configuration contract: store.path, rpc.endpoint,
// rpc.timeout_ms, sync.max_blocks_per_request, sync.discard_grace_blocks,
// log.level.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("rpc.timeout_ms", int64(defaultRpcTimeout/time.Millisecond))
	v.SetDefault("log.level", defaultLogLevel)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := Config{
		StorePath:           v.GetString("store.path"),
		RpcEndpoint:         v.GetString("rpc.endpoint"),
		RpcTimeout:          time.Duration(v.GetInt64("rpc.timeout_ms")) * time.Millisecond,
		MaxBlocksPerRequest: v.GetUint32("sync.max_blocks_per_request"),
		DiscardGraceBlocks:  v.GetUint32("sync.discard_grace_blocks"),
		LogLevel:            v.GetString("log.level"),
	}
	return cfg.withDefaults(), nil
}
