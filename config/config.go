// Package config loads the service configuration from a TOML file,
// with environment fallbacks for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/layer-3/rangda/core"
)

// Store backends selectable in the config file.
const (
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreLevelDB = "leveldb"
)

// Config is the full service configuration as read at startup.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":9000".
	Listen string `toml:"listen"`
	// Store selects the nonce store backend: memory, redis or leveldb.
	Store string `toml:"store"`
	// RedisURL is the redis connection URL. RANGDA_REDIS_URL overrides it.
	RedisURL string `toml:"redis_url"`
	// LevelDBPath is the database directory for the leveldb backend.
	LevelDBPath string `toml:"leveldb_path"`

	Handshake HandshakeConfig `toml:"handshake"`
}

// HandshakeConfig is the [handshake] section of the config file.
type HandshakeConfig struct {
	Domain                string   `toml:"domain"`
	Statement             string   `toml:"statement"`
	Version               string   `toml:"version"`
	PreventReplay         bool     `toml:"prevent_replay"`
	MessageValidityWindow duration `toml:"message_validity_window"`
}

// duration lets TOML carry durations as strings like "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Load reads the configuration from the given TOML file and applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	conf := &Config{
		Listen: ":9000",
		Store:  StoreMemory,
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, conf); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if url := os.Getenv("RANGDA_REDIS_URL"); url != "" {
		conf.RedisURL = url
	}
	if conf.RedisURL == "" {
		conf.RedisURL = "redis://localhost:6379/0"
	}

	switch conf.Store {
	case StoreMemory, StoreRedis, StoreLevelDB:
	default:
		return nil, fmt.Errorf("unknown store backend %q", conf.Store)
	}
	if conf.Store == StoreLevelDB && conf.LevelDBPath == "" {
		return nil, fmt.Errorf("leveldb store requires leveldb_path")
	}

	return conf, nil
}

// Engine converts the [handshake] section into the engine's own
// configuration type. Validation happens at engine construction.
func (c *Config) Engine() core.Config {
	return core.Config{
		Domain:                c.Handshake.Domain,
		Statement:             c.Handshake.Statement,
		Version:               c.Handshake.Version,
		PreventReplay:         c.Handshake.PreventReplay,
		MessageValidityWindow: c.Handshake.MessageValidityWindow.Duration,
	}
}
