package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stdout)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	return l
}

// SetOutput redirects log lines, mostly for tests.
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// SetLevel parses a level name ("debug", "info", "warn", "error"); unknown names are ignored.
func SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	logger.WithFields(logrus.Fields(fields)).Info(msg)
}

// Warn writes a warn-level log line. Used for failures that must not break a request.
func Warn(msg string, fields map[string]any) {
	logger.WithFields(logrus.Fields(fields)).Warn(msg)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	logger.WithFields(logrus.Fields(fields)).Error(msg)
}
