package main

import (
	"os"

	"samplebook/internal/config"
	"samplebook/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnvFiles()
	logger.Get(os.Getenv("DEBUG") == "true")

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("seed")
		os.Exit(1)
	}
}
