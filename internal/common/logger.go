// logger.go - Process-wide zap logger with a runtime adjustable level

package common

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "lvl",
		NameKey:        "name",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	defaultLogger = zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			zapLevel,
		),
		zap.AddCaller(),
	)
)

// Logger returns the shared zap logger.
func Logger() *zap.Logger {
	return defaultLogger
}

// SetLogLevel sets the shared level. Unknown values fall back to info.
func SetLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		zapLevel.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		zapLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		zapLevel.SetLevel(zapcore.ErrorLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// LogLevel reports the current shared level.
func LogLevel() zapcore.Level {
	return zapLevel.Level()
}
