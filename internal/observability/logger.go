package observability

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents logging levels
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var (
	currentLogLevel = LogLevelInfo
	debugEnabled    = false
)

func init() {
	if os.Getenv("DEBUG") != "" || os.Getenv("SYMBOLICA_DEBUG") != "" {
		currentLogLevel = LogLevelDebug
		debugEnabled = true
		log.Println("debug logging enabled")
	}
}

// Debug logs debug-level messages (only if DEBUG=1 or SYMBOLICA_DEBUG=1)
func Debug(ctx context.Context, format string, args ...interface{}) {
	if currentLogLevel <= LogLevelDebug {
		logWithContext(ctx, "DEBUG", format, args...)
	}
}

// Info logs info-level messages
func Info(ctx context.Context, format string, args ...interface{}) {
	if currentLogLevel <= LogLevelInfo {
		logWithContext(ctx, "INFO", format, args...)
	}
}

// Warn logs warning-level messages
func Warn(ctx context.Context, format string, args ...interface{}) {
	if currentLogLevel <= LogLevelWarn {
		logWithContext(ctx, "WARN", format, args...)
	}
}

// Error logs error-level messages
func Error(ctx context.Context, format string, args ...interface{}) {
	if currentLogLevel <= LogLevelError {
		logWithContext(ctx, "ERROR", format, args...)
	}
}

// logWithContext logs with trace ID if available
func logWithContext(ctx context.Context, level string, format string, args ...interface{}) {
	timestamp := time.Now().Format("2006/01/02 15:04:05.000")
	message := fmt.Sprintf(format, args...)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		traceID := span.SpanContext().TraceID().String()
		log.Printf("%s [%s] [trace=%s] %s", timestamp, level, traceID[:8], message)
	} else {
		log.Printf("%s [%s] %s", timestamp, level, message)
	}
}

// LogReasonStart logs the start of a reason() call.
func LogReasonStart(ctx context.Context, callID string, ruleCount, factCount int) {
	if debugEnabled {
		Debug(ctx, "-> reason call=%s rules=%d facts=%d", callID, ruleCount, factCount)
	}
}

// LogReasonEnd logs the outcome of a reason() call.
func LogReasonEnd(ctx context.Context, callID string, firedCount int, truncated, cancelled bool, duration time.Duration) {
	if debugEnabled {
		Debug(ctx, "<- reason call=%s fired=%d truncated=%v cancelled=%v duration=%v", callID, firedCount, truncated, cancelled, duration)
	} else if truncated || cancelled {
		Warn(ctx, "reason call=%s incomplete truncated=%v cancelled=%v", callID, truncated, cancelled)
	}
}

// LogError logs an error with operation context.
func LogError(ctx context.Context, operation string, err error) {
	Error(ctx, "operation failed: %s error=%v", operation, err)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}
