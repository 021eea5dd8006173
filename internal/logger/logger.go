package logger

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Get configures the global zerolog logger on first use and returns it.
// Debug switches to a human-readable console writer at debug level.
func Get(debug bool) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)

		var l zerolog.Logger
		if debug {
			l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		} else {
			l = zerolog.New(os.Stdout)
		}
		log.Logger = l.With().Timestamp().Str("service", "samplebook").Logger()
	})
	return log.Logger
}
