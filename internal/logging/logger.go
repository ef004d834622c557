// Package logging provides the shared technical logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	L *zap.Logger        = zap.NewNop()
	S *zap.SugaredLogger = L.Sugar()
)

// Initialize builds a logger at verbosity v and installs it as L and S.
// v=0 logs warnings and above, each increment lowers the threshold by one
// level. Terminals get a colored console encoder on stderr, everything else
// JSON on stderr so stdout stays free for command output.
func Initialize(v int) (*zap.Logger, error) {
	logger := New(v, term.IsTerminal(int(os.Stderr.Fd())), zapcore.Lock(os.Stderr))
	Replace(logger)
	return logger, nil
}

// New builds a logger writing to w.
func New(v int, console bool, w zapcore.WriteSyncer) *zap.Logger {
	atom := zap.NewAtomicLevelAt(Level(v))

	var encoder zapcore.Encoder
	if console {
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalColorLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,
		})
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	return zap.New(zapcore.NewCore(encoder, w, atom))
}

// Level maps a -v count to a zap level, clamped to [Debug, Warn].
func Level(v int) zapcore.Level {
	lvl := zapcore.WarnLevel - zapcore.Level(v)
	if lvl < zapcore.DebugLevel {
		lvl = zapcore.DebugLevel
	}
	if lvl > zapcore.WarnLevel {
		lvl = zapcore.WarnLevel
	}
	return lvl
}

// Replace installs logger as the package logger.
func Replace(logger *zap.Logger) {
	L = logger
	S = logger.Sugar()
}

// Sync flushes the package logger. Errors from syncing a terminal are ignored.
func Sync() {
	_ = L.Sync()
}
