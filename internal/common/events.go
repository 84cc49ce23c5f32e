// events.go - Structured event sink used by the parsing core and the OCR invoker

package common

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventSink receives structured diagnostic events.
// The parsing core only talks to this interface so it stays free of any logger setup.
type EventSink interface {
	Event(level zapcore.Level, msg string, fields ...zap.Field)
}

// NopSink drops every event.
type NopSink struct{}

// Event implements EventSink.
func (NopSink) Event(zapcore.Level, string, ...zap.Field) {}

// ZapSink forwards events to a zap logger.
type ZapSink struct {
	Logger *zap.Logger
}

// NewZapSink wraps logger, falling back to the package logger when nil.
func NewZapSink(logger *zap.Logger) ZapSink {
	if logger == nil {
		logger = Logger()
	}
	return ZapSink{Logger: logger}
}

// Event implements EventSink.
func (s ZapSink) Event(level zapcore.Level, msg string, fields ...zap.Field) {
	if ce := s.Logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}
