// Package evlog is the reactor's logging setup on top of zap: a trace
// level below Debug for the hot per-event-loop-iteration paths, and a
// couple of constructors matching how the rest of the module wants to
// create loggers (stderr for development, rotating files in production).
package evlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one notch below zap's Debug, for per-readiness-event
// dispatch logging that would otherwise drown out everything else even at
// debug verbosity.
const TraceLevel = zapcore.DebugLevel - 1

var levelNames = map[zapcore.Level]string{TraceLevel: "TRACE"}

// New builds a development-style logger: console-encoded, colorized level,
// caller info, writing to stderr. Suitable for cmd/ examples and tests.
func New(level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = encodeLevel
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core, zap.AddCaller())
}

// NewProduction builds a JSON-encoded logger for production deployments,
// writing to w (typically a lumberjack-rotated file, left to the caller to
// construct since rotation policy is deployment-specific).
func NewProduction(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = encodeLevel
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level)
	return zap.New(core, zap.AddCaller())
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if name, ok := levelNames[l]; ok {
		enc.AppendString(name)
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Trace logs at TraceLevel, checking the level first so callers on a hot
// path don't pay for field construction when tracing is disabled.
func Trace(log *zap.Logger, msg string, fields ...zap.Field) {
	if ce := log.Check(TraceLevel, msg); ce != nil {
		ce.Write(fields...)
	}
}
