// Package logging is the diagnostic stream for the emulation layer.
// Parameter-validation failures and failed external commands are reported
// here rather than returned as errors, so a bad shaping parameter never
// aborts the rest of a configuration batch.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = newDefault()

func newDefault() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// Replace swaps the package logger for one built on core and returns a
// restore function. Tests use this with an observer core to count reports.
func Replace(core zapcore.Core) func() {
	old := logger
	logger = zap.New(core).Sugar()
	return func() { logger = old }
}

func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }

func Infof(format string, args ...interface{}) { logger.Infof(format, args...) }

func Warnf(format string, args ...interface{}) { logger.Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// Fatalf reports and terminates the process.
func Fatalf(format string, args ...interface{}) { logger.Fatalf(format, args...) }
