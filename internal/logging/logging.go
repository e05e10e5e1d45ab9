package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. An unknown level falls back to info.
func New(level string) *logrus.Logger {
	log := &logrus.Logger{
		Out: os.Stdout,
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
	if level != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			log.WithField("level", level).Warn("invalid log level, using info")
		} else {
			log.SetLevel(lvl)
		}
	}
	return log
}
