// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup sets level and format on the standard logger. An unknown level falls
// back to info.
func Setup(level string, json bool) {
	SetupTo(os.Stderr, level, json)
}

func SetupTo(out io.Writer, level string, json bool) {
	log.SetOutput(out)

	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	if err != nil && level != "" {
		log.Warnf("unknown log level %q, using info", level)
	}
}
