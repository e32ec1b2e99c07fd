// Command cursorctl counts and exports delimited files, queries and pages
// of sqlite tables through cursors.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("cursorctl failed")
		os.Exit(1)
	}
}
