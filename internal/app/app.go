package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from the configured level and
// destination. The returned func closes the log file, if any.
func NewLogger(cfg Config) (*logrus.Logger, func() error, error) {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("config: invalid LogLevel: %w", err)
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
		return log, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("app: failed to create log file: %w", err)
	}
	log.SetOutput(f)
	return log, f.Close, nil
}
