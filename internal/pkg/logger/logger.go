// Package logger holds the console's process-wide zap logger.
//
// The server logs JSON; consolectl logs human-readable console output to
// stderr so it does not mix with command output. The level is an
// AtomicLevel and can be changed at runtime through LevelHandler.
package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"odoodeploy.io/console/internal/config"
)

// FormatConsole selects the development encoder.
const FormatConsole = "console"

var (
	global atomic.Pointer[zap.Logger]
	level  = zap.NewAtomicLevel()
)

// Init builds the global logger from cfg. Calling it again replaces the
// logger and level; entries already handed out keep their old core.
func Init(cfg config.LogConfig) error {
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == FormatConsole {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = level

	l, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	if old := global.Swap(l); old != nil {
		_ = old.Sync()
	}
	return nil
}

// L returns the global logger. It panics before Init.
func L() *zap.Logger {
	l := global.Load()
	if l == nil {
		panic("logger.Init() must be called before logger.L()")
	}
	return l
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// With returns a child logger carrying fields, e.g. a wizard session id.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Named returns a child logger for one subsystem, e.g. "audit".
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// LevelHandler is the runtime level endpoint. GET reports the level,
// PUT {"level":"debug"} changes it.
func LevelHandler() *zap.AtomicLevel {
	return &level
}

// Sync flushes buffered entries. It is a no-op before Init.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

// Correlation fields shared by the server, the use cases and consolectl.

func RequestID(id string) zap.Field  { return zap.String("request_id", id) }
func SessionID(id string) zap.Field  { return zap.String("session_id", id) }
func InstanceID(id string) zap.Field { return zap.String("instance_id", id) }
