// Package zap implements types.Logger on top of go.uber.org/zap. It is the
// only logging backend this module ships; callers that want a different
// sink implement types.Logger themselves.
package zap

import (
	"os"

	"github.com/relaycore/pgdb/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger implements types.Logger.
type Logger struct {
	zlog *zap.SugaredLogger
}

var _ types.Logger = (*Logger)(nil)

// New builds a console-JSON Logger at the given level ("debug", "info",
// "warn", "error"; defaults to "info" on empty or unparsable input).
func New(level string) *Logger {
	lvl := zapcore.InfoLevel
	if len(level) > 0 {
		_ = lvl.UnmarshalText([]byte(level))
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(os.Stdout),
		lvl,
	)
	return &Logger{zlog: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zlog: zap.NewNop().Sugar()}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func (l *Logger) Debug(args ...any) { l.zlog.Debug(args...) }
func (l *Logger) Info(args ...any)  { l.zlog.Info(args...) }
func (l *Logger) Warn(args ...any)  { l.zlog.Warn(args...) }
func (l *Logger) Error(args ...any) { l.zlog.Error(args...) }

func (l *Logger) Debugw(msg string, kv ...any) { l.zlog.Debugw(msg, kv...) }
func (l *Logger) Infow(msg string, kv ...any)  { l.zlog.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...any)  { l.zlog.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...any) { l.zlog.Errorw(msg, kv...) }

// Named returns a child logger whose messages are tagged with name, the way
// the registry gives each connection's coordinator a `cachecoord.<name>`
// sub-logger.
func (l *Logger) Named(name string) types.Logger {
	return &Logger{zlog: l.zlog.Named(name)}
}
