package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

// sweepCmd deletes expired nonce records. It is safe to run while the
// service is handling traffic: it only removes records the success
// path can no longer use.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired nonce records",
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

		count, err := nonceStore.DeleteAllExpired(context.Background(), time.Now())
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}

		fmt.Printf("Deleted %d expired nonce record(s)\n", count)
	},
}

func init() {
	RootCmd.AddCommand(sweepCmd)
}
