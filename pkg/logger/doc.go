// Package logger builds slog loggers for the SDK and its hosts.
//
// The factory produces JSON output by default, matching log aggregation
// pipelines; text output is available for development. Every pipeline
// component takes an optional *slog.Logger, so a host that already has
// one simply passes it in — this package is for hosts that do not.
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithFormat(logger.FormatText),
//	)
//	t, _ := tracker.New(key, tracker.WithLogger(logger.Component(log, "tracker")))
package logger
