package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. It discards everything until Init is called.
var Log = zap.NewNop()

// Init installs a development console logger at debug level.
func Init() {
	InitWithLevel(zapcore.DebugLevel)
}

// InitWithLevel installs a console logger filtering below level.
func InitWithLevel(level zapcore.Level) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// Keep the previous logger, there is nowhere to report to.
		return
	}
	Log = l
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
