package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lease-service/pkg/config"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// InitLogger configures the global logger from the application config.
func InitLogger(appConfig *config.Config) {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		if level, err := zapcore.ParseLevel(appConfig.Log.Level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
		logger, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		instance = logger
	})
}

// GetLogger returns the global logger, building a default one if
// InitLogger was never called.
func GetLogger() *zap.Logger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		logger, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		instance = logger
	})
	return instance
}
