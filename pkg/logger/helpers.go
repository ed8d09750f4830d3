package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogRequest logs one HTTP exchange with the asset host
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.WarnWithFields("HTTP request client error", fields)
	}
}

// LogMaterializeProgress logs a change of the loaded entry count
func LogMaterializeProgress(l Logger, userID string, loaded, scrolls int) {
	l.WithFields(map[string]interface{}{
		"user_id": userID,
		"loaded":  loaded,
		"scrolls": scrolls,
	}).Debug("Catalog progress")
}

// LogDownloadSummary logs the counters of a finished user query
func LogDownloadSummary(l Logger, userID string, attempted, succeeded, skipped, failed int) {
	rate := 0.0
	if attempted > 0 {
		rate = float64(succeeded+skipped) / float64(attempted) * 100
	}

	l.WithFields(map[string]interface{}{
		"user_id":   userID,
		"attempted": attempted,
		"succeeded": succeeded,
		"skipped":   skipped,
		"failed":    failed,
		"ok_rate":   fmt.Sprintf("%.1f%%", rate),
	}).Info("Download summary")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Debug("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
