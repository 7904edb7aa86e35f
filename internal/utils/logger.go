// Package utils holds small cross-cutting helpers shared by the
// app/container wiring and the request pipeline: logrus setup and a
// pooled byte buffer, mirroring gpt-load's internal/utils
// (logger_utils.go, buffer_pool.go) trimmed to what this proxy needs.
package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogConfig configures the process-wide logrus logger.
type LogConfig struct {
	Level  string
	Format string
}

// SetupLogger configures logrus's level and formatter from cfg. Called
// once at startup before the container is built.
func SetupLogger(cfg LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warn("invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	logrus.SetOutput(os.Stdout)
}
