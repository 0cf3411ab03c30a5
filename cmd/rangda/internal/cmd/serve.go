package cmd

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/layer-3/rangda/adapters/events"
	"github.com/layer-3/rangda/adapters/siwe"
	"github.com/layer-3/rangda/adapters/tokenizer"
	"github.com/layer-3/rangda/config"
	"github.com/layer-3/rangda/ports"
	"github.com/layer-3/rangda/service"
	"github.com/layer-3/rangda/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the handshake HTTP service",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		nonceStore, closeStore, err := newNonceStore(conf)
		if err != nil {
			log.Fatalf("Failed to open nonce store: %v", err)
		}
		if closeStore != nil {
			defer closeStore()
		}

		codec := siwe.NewCodec()
		handshake, err := service.NewHandshakeService(
			nonceStore,
			siwe.NewVerifier(codec),
			codec,
			siwe.NewAddressValidator(),
			conf.Engine(),
		)
		if err != nil {
			log.Fatalf("Invalid handshake configuration: %v", err)
		}

		// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
		signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}

		// Cross-instance event publication rides the redis backend; the
		// embedded backends run single-instance and publish nothing.
		var eventPub ports.EventPublisher
		if conf.Store == config.StoreRedis {
			opts, err := redis.ParseURL(conf.RedisURL)
			if err != nil {
				log.Fatalf("Failed to parse redis URL: %v", err)
			}

			logger := watermill.NewStdLogger(false, false)
			publisher, err := redisstream.NewPublisher(
				redisstream.PublisherConfig{
					Client: redis.NewClient(opts),
				},
				logger,
			)
			if err != nil {
				log.Fatalf("Failed to create event publisher: %v", err)
			}
			eventPub = events.NewWatermillPublisher(publisher)
		}

		router := http.SetupRouter(handshake, tokenizer.NewJWTTokenizer(signKey), eventPub)

		if err := router.Run(conf.Listen); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
