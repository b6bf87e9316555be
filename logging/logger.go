package logging

import (
	"github.com/sirupsen/logrus"
)

// NewLogger creates a JSON logger at the given level
func NewLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)
	return logger
}

// WithComponent tags every line written through the entry with the component name
func WithComponent(logger *logrus.Logger, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
