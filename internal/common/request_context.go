// request_context.go - Request tracking and logging system

package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestContext tracks one extraction request with timing and token usage.
// It is safe for use by the goroutine that owns the request plus concurrent log calls.
type RequestContext struct {
	RequestID        string
	Source           string
	StartTime        time.Time
	Steps            []StepLog
	TotalTokens      TokenUsage
	CurrentStep      string
	CurrentStepStart time.Time

	logger *zap.Logger
	mu     sync.Mutex
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string      `json:"name"`
	StartTime time.Time   `json:"start_time"`
	Duration  int64       `json:"duration_ms"`
	Status    string      `json:"status"` // "success", "failed", "skipped"
	Tokens    *TokenUsage `json:"tokens,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TokenUsage tracks provider token consumption (Gemini only; OCR.space reports none)
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewRequestContext creates a new request tracking context.
// source identifies the caller (bot name, "http", ...).
func NewRequestContext(source string) *RequestContext {
	reqID := uuid.New().String()
	now := time.Now()

	logger := Logger().With(zap.String("request_id", reqID))
	logger.Info("new extraction request", zap.String("source", source))

	return &RequestContext{
		RequestID: reqID,
		Source:    source,
		StartTime: now,
		Steps:     []StepLog{},
		logger:    logger,
	}
}

// Event implements EventSink, tagging every event with the request id.
func (rc *RequestContext) Event(level zapcore.Level, msg string, fields ...zap.Field) {
	if ce := rc.log().Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.mu.Lock()
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()
	rc.mu.Unlock()

	rc.log().Debug("step started", zap.String("step", stepName))
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, tokens *TokenUsage, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	duration := time.Since(rc.CurrentStepStart)
	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration.Milliseconds(),
		Status:    status,
		Tokens:    tokens,
	}

	if err != nil {
		stepLog.Error = err.Error()
		rc.log().Warn("step failed",
			zap.String("step", rc.CurrentStep),
			zap.Duration("elapsed", duration),
			zap.Error(err))
	} else {
		fields := []zap.Field{
			zap.String("step", rc.CurrentStep),
			zap.String("status", status),
			zap.Duration("elapsed", duration),
		}
		if tokens != nil {
			rc.TotalTokens.InputTokens += tokens.InputTokens
			rc.TotalTokens.OutputTokens += tokens.OutputTokens
			rc.TotalTokens.TotalTokens += tokens.TotalTokens
			fields = append(fields, zap.Int("tokens", tokens.TotalTokens))
		}
		rc.log().Info("step finished", fields...)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
}

// GetSummary returns a final summary of the entire request
func (rc *RequestContext) GetSummary() map[string]interface{} {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64)
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] += step.Duration
	}

	summary := map[string]interface{}{
		"request_id":         rc.RequestID,
		"source":             rc.Source,
		"total_duration_ms":  totalDuration,
		"total_duration_sec": float64(totalDuration) / 1000,
		"step_breakdown":     stepBreakdown,
		"total_steps":        len(rc.Steps),
	}
	if rc.TotalTokens.TotalTokens > 0 {
		summary["token_usage"] = rc.TotalTokens
	}

	rc.log().Info("request summary",
		zap.Int64("total_ms", totalDuration),
		zap.Int("steps", len(rc.Steps)),
		zap.String("tokens", formatNumber(rc.TotalTokens.TotalTokens)))

	return summary
}

// LogInfo logs info-level message with request ID
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	rc.log().Info(fmt.Sprintf(format, args...))
}

// LogWarning logs warning-level message with request ID
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	rc.log().Warn(fmt.Sprintf(format, args...))
}

// LogError logs error-level message with request ID
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	rc.log().Error(fmt.Sprintf(format, args...))
}

func (rc *RequestContext) log() *zap.Logger {
	if rc.logger == nil {
		rc.logger = Logger().With(zap.String("request_id", rc.RequestID))
	}
	return rc.logger
}

// formatNumber adds comma separators to numbers
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n%1000000)/1000, n%1000)
}
