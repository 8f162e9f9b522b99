// Package cliutil holds the small pieces of glue main.go needs that don't
// belong to any one operation: logging setup driven by a verbosity count.
package cliutil

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

var defaultLogFormatter = &log.TextFormatter{}

// infoFormatter prints plain, unadorned lines at Info level and falls back
// to the standard formatter for everything else, so a default run reads
// like ordinary program output rather than a wall of structured fields.
type infoFormatter struct{}

func (f *infoFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level == log.InfoLevel {
		return append([]byte(entry.Message), '\n'), nil
	}
	return defaultLogFormatter.Format(entry)
}

// SetupLogging configures the standard logrus logger from a verbosity
// count: 0 = errors only, 1 = info (the default), 2 = debug, 3 = trace.
// Explicitly requesting any verbosity switches to the structured
// formatter, since the plain one is only meant for default-level output.
func SetupLogging(verbose int, verboseSet bool) error {
	log.SetFormatter(new(infoFormatter))
	log.SetLevel(log.InfoLevel)

	switch {
	case verbose <= 0:
		log.SetLevel(log.ErrorLevel)
	case verbose == 1:
		if verboseSet {
			log.SetFormatter(defaultLogFormatter)
		}
		log.SetLevel(log.InfoLevel)
	case verbose == 2:
		log.SetFormatter(defaultLogFormatter)
		log.SetLevel(log.DebugLevel)
	case verbose == 3:
		log.SetFormatter(defaultLogFormatter)
		log.SetLevel(log.TraceLevel)
	default:
		return errors.New("cliutil: verbose flag can only be set to 0, 1, 2 or 3")
	}
	return nil
}
