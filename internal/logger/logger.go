// Package logger holds the process-wide zap sugared logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the global logger once for the given environment.
// "production" logs JSON; anything else logs human-readable console
// output.
func Init(env string) {
	once.Do(func() {
		base, err := build(env)
		if err != nil {
			base = zap.NewNop()
		}
		sugar = base.Sugar()
	})
}

func build(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Get returns the global sugared logger, initializing a development
// logger on first use if Init was never called.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Sync flushes any buffered log entries. Call before exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
