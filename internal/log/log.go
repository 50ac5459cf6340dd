// Package log sets up the zap logger shared by the taup commands and logs
// the HTTP requests the server handles.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

// Init builds the process logger for command. Debug selects zap's
// development config, otherwise JSON at info level. Every entry carries the
// command name.
func Init(command string, debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build(zap.Fields(zap.String("cmd", command)))
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	base, sugar = l, l.Sugar()
	return nil
}

// GetSugaredLogger returns the process logger, falling back to a production
// logger before Init. Libraries receive it through their options and never
// reach for this package themselves.
func GetSugaredLogger() *zap.SugaredLogger {
	if sugar == nil {
		base, _ = zap.NewProduction()
		sugar = base.Sugar()
	}
	return sugar
}

// Named returns a child logger for one component, e.g. "engine" or "http".
func Named(component string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(component)
}

// Sync flushes any buffered log entries
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

func Errorf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Errorf(template, args...)
}

// Fatalf logs and exits with status 1.
func Fatalf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Fatalf(template, args...)
}
