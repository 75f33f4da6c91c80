// Package log is the process-wide logger. Lines are text formatted with a
// full timestamp; structured context goes through WithFields.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
)

// Fields is an alias so callers don't have to import logrus for structured lines.
type Fields = logrus.Fields

var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
	return l
}

func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// Log writes args at level; used where the level depends on the outcome.
func Log(level Level, args ...any) {
	Logger.Logln(logrus.Level(level), args...)
}

func Debugf(format string, args ...any) { Logger.Debugf(format, args...) }
func Debug(args ...any)                 { Logger.Debugln(args...) }
func Infof(format string, args ...any)  { Logger.Infof(format, args...) }
func Info(args ...any)                  { Logger.Infoln(args...) }
func Warnf(format string, args ...any)  { Logger.Warnf(format, args...) }
func Errorf(format string, args ...any) { Logger.Errorf(format, args...) }
