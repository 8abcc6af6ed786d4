package util

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Reminder is used for time consuming operations to remind user about progress.
type Reminder struct {
	mu       sync.Mutex
	start    time.Time      // start time since last warn
	interval time.Duration  // interval to remind once in info level
	level    logrus.Level   // log level to remind in general
	logger   *logrus.Logger // logger to remind with
}

// NewReminder returns a new Reminder instance, which logs in debug level in general.
//
// `interval`: interval to remind in info level.
func NewReminder(logger *logrus.Logger, interval time.Duration) *Reminder {
	if logger == nil {
		logger = logrus.New()
		logger.Out = io.Discard
	}

	return &Reminder{
		start:    time.Now(),
		interval: interval,
		level:    logrus.DebugLevel,
		logger:   logger,
	}
}

// RemindWith reminds about specified `message` along with `key` and `value`.
func (reminder *Reminder) RemindWith(message string, key string, value interface{}) {
	reminder.Remind(message, logrus.Fields{key: value})
}

// Remind reminds about specified `message` and optional `fields`.
func (reminder *Reminder) Remind(message string, fields ...logrus.Fields) {
	reminder.mu.Lock()
	level := reminder.level
	if time.Since(reminder.start) > reminder.interval {
		level = logrus.InfoLevel
		reminder.start = time.Now()
	}
	reminder.mu.Unlock()

	reminder.remind(level, message, fields...)
}

func (reminder *Reminder) remind(level logrus.Level, message string, fields ...logrus.Fields) {
	if len(fields) > 0 {
		reminder.logger.WithFields(fields[0]).Log(level, message)
	} else {
		reminder.logger.Log(level, message)
	}
}
