// Package logger provides the structured logging interface used across emotedl.
//
// It wraps zerolog. Console output goes to stderr in a colored, human readable
// form so that stdout stays reserved for per-emote progress lines. When a log
// file is configured every event is also appended to it as JSON.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.WithField("user_id", id).Info("Materializing catalog")
//	logger.WithError(err).Error("Download failed")
//
// Components usually hold a child logger:
//
//	log := logger.GetLogger().WithFields(map[string]interface{}{
//	    "component": "downloader",
//	    "run_id":    runID,
//	})
//
// Tests use NewTestLogger to capture and assert on log messages.
package logger
