package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// InitDefault sets up a console logger before flags are parsed.
func InitDefault() {
	log.Logger = zerolog.New(consoleWriter(false)).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)
}

// Init configures the global logger from the viper-bound flags.
func Init() {
	level, err := zerolog.ParseLevel(viper.GetString(LevelKey))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch viper.GetString(FormatKey) {
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		logger = zerolog.New(consoleWriter(viper.GetBool(NoColorKey)))
	}

	log.Logger = logger.With().Timestamp().Logger().Level(level)
}

func consoleWriter(noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
	}
}
