// Package logger builds the zap console loggers used across the chronicle
// pipeline.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerName tags every line so chronicle output is identifiable when the
// host process multiplexes several log streams.
const loggerName = "chronicle"

// NewLogger returns the standard chronicle logger writing to stdout. Debug
// widens the level from info to debug.
func NewLogger(debug bool) *zap.Logger {
	return NewLoggerWithWriters(debug, os.Stdout)
}

// NewLoggerWithWriters builds a console logger fanning out to the given
// writers. Tests pass a buffer here to capture output.
func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.NewMultiWriteSyncer(syncers...),
		level(debug),
	)

	return zap.New(core, zap.AddCaller()).Named(loggerName)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func level(debug bool) zapcore.Level {
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}
