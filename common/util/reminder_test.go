package util

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestReminder(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.Out = &buf
	logger.SetLevel(logrus.InfoLevel)

	reminder := NewReminder(logger, time.Hour)
	reminder.RemindWith("Scanning", "path", "/tmp")
	assert.Empty(t, buf.String())

	reminder.start = time.Now().Add(-2 * time.Hour)
	reminder.RemindWith("Scanning", "path", "/tmp")
	assert.Contains(t, buf.String(), "Scanning")
	assert.Contains(t, buf.String(), "path=/tmp")
}

func TestReminderNilLogger(t *testing.T) {
	reminder := NewReminder(nil, time.Millisecond)
	reminder.Remind("discarded")
}
