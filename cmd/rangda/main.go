// rangda is a wallet handshake verification service: it issues signing
// challenges and validates the signed proofs presented against them.
package main

import (
	"os"

	"github.com/layer-3/rangda/cmd/rangda/internal/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
