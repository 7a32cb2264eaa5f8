package database

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/vinyl-tracker/internal/logging"
)

// zerologWriter adapts zerolog to gorm's logger.Writer.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.log.Info().Msgf(strings.TrimSpace(format), args...)
}

func newGormLogger(level string) logger.Interface {
	return logger.New(
		zerologWriter{log: logging.Component("gorm")},
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
