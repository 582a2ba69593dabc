// Command idrelay runs the identity relay service and offers operator helpers
// for minting and inspecting session credentials.
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/MrEthical07/idrelay/internal/logging"
)

func main() {
	// pre-flag logger
	logging.InitDefault()

	if err := newRootCmd(newApp()).Execute(); err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}
