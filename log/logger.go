package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

const (
	defaultLevel   = logrus.ErrorLevel
	defaultService = "outbox-relay"
)

// Logger is the process wide logger. Every entry carries the name of the
// care service the relay runs beside so that logs from the relays of the
// different services can be told apart.
var Logger *logrus.Entry

func init() {
	Logger = newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("SERVICE_NAME"))
}

func newLogger(level, format, service string) *logrus.Entry {
	l := logrus.New()
	l.Out = os.Stdout
	l.Formatter = resolveFormatter(format)

	lvl, err := resolveLogLevel(level)
	l.Level = lvl

	if service == "" {
		service = defaultService
	}
	entry := l.WithField("service", service)

	if err != nil {
		entry.Errorf("an error occurred resolving the log level: %s", err)
	}

	return entry
}

func resolveFormatter(format string) logrus.Formatter {
	if format == "text" {
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	}

	return &logrus.JSONFormatter{}
}

func resolveLogLevel(envLvl string) (logrus.Level, error) {
	if envLvl == "" {
		return defaultLevel, nil
	}

	lvl, err := logrus.ParseLevel(envLvl)
	if err != nil {
		return defaultLevel, err
	}

	return lvl, nil
}
