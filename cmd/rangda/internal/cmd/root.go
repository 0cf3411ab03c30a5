package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/layer-3/rangda/adapters/store"
	"github.com/layer-3/rangda/config"
	"github.com/layer-3/rangda/ports"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "rangda",
	Short: "Wallet handshake verification service",
	Long: `rangda issues signing challenges and validates the signed
proofs presented against them, with nonce-based replay prevention.`,
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "", "path to the TOML configuration file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// newNonceStore builds the configured nonce store backend. The
// returned closer is nil for backends without one.
func newNonceStore(conf *config.Config) (ports.NonceStore, func() error, error) {
	switch conf.Store {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil, nil

	case config.StoreRedis:
		opts, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		return store.NewRedisStore(client), client.Close, nil

	case config.StoreLevelDB:
		ldb, err := store.OpenLevelDBStore(conf.LevelDBPath)
		if err != nil {
			return nil, nil, err
		}
		return ldb, ldb.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", conf.Store)
	}
}
