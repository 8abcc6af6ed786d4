package common

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogOption configures the logger of a scanner, runner, finder or session.
type LogOption struct {
	LogLevel logrus.Level   // Level of a dedicated logger
	Output   io.Writer      // Destination of a dedicated logger, defaults to stderr
	Logger   *logrus.Logger // Shared logger, takes precedence over the fields above
}

// WithLogger shares logger with a component, typically the logger of its owner.
func WithLogger(logger *logrus.Logger) LogOption {
	return LogOption{Logger: logger}
}

// NewLogger returns the logger described by the first option. Components created
// without any option log nothing.
func NewLogger(opt ...LogOption) *logrus.Logger {
	logger := logrus.New()

	if len(opt) == 0 {
		logger.SetOutput(io.Discard)
		return logger
	}

	if opt[0].Logger != nil {
		return opt[0].Logger
	}

	logger.SetLevel(opt[0].LogLevel)
	if opt[0].Output != nil {
		logger.SetOutput(opt[0].Output)
	}

	return logger
}
