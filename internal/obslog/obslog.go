// Package obslog provides the mesh's structured logging singleton, built on
// logrus instead of plain fmt.Printf calls. Call Init once at startup;
// everything else in the module fetches the shared logger with Get.
package obslog

import (
	"sync"

	"github.com/fatih/structs"
	"github.com/sirupsen/logrus"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// Options configures the singleton logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// Init configures the shared logger. Safe to call multiple times; only the
// first call takes effect.
func Init(opts Options) {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		if opts.Format == "json" {
			logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
	})
}

// Get returns the shared logger, initializing it with defaults if Init was
// never called (so packages can log during tests without ceremony).
func Get() *logrus.Logger {
	if logger == nil {
		Init(Options{Level: "info", Format: "text"})
	}
	return logger
}

// Fields flattens a struct into logrus.Fields for structured logging, the
// way the mesh engine reports peer and link-state snapshots at debug level.
// Non-struct values fall back to a single "value" field.
func Fields(v interface{}) logrus.Fields {
	if !structs.IsStruct(v) {
		return logrus.Fields{"value": v}
	}
	return logrus.Fields(structs.Map(v))
}
