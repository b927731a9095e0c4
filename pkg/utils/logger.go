package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger writing to stderr, so stdout stays free for command output.
// When debug is true, uses development config (console, debug level); otherwise uses
// production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	return newLogger(debug, zapcore.Lock(os.Stderr)), nil
}

func newLogger(debug bool, sink zapcore.WriteSyncer) *zap.Logger {
	if debug {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, sink, zap.DebugLevel), zap.AddCaller(), zap.Development())
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, sink, zap.InfoLevel), zap.AddCaller())
}
