// Package obslog builds the process-wide zap logger from the CLI's
// verbosity flag. There is exactly one logger per process; callers obtain
// it via L after Init has run.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

// L returns the process-wide logger. Safe to call before Init; returns a
// no-op logger until then.
func L() *zap.Logger { return globalLogger }

// Init builds the global logger. verbose raises the level to debug;
// otherwise info.
func Init(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	enc := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	globalLogger = logger
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}
