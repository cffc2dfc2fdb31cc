// Package observability provides structured logging, metrics, and
// tracing for bakefile generation runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// EnrichLogger adds generation context to a logger.
// Returns a new logger with run_id, bakefile, and format fields.
func EnrichLogger(logger *slog.Logger, runID, bakefile, formatName string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("bakefile", bakefile),
		slog.String("format", formatName),
	)
}

// LogGenerateStart logs the start of a generation run.
func LogGenerateStart(logger *slog.Logger, runID, bakefile, formatName string) {
	if logger == nil {
		return
	}
	logger.Info("generation starting",
		slog.String("run_id", runID),
		slog.String("bakefile", bakefile),
		slog.String("format", formatName),
	)
}

// LogGenerateComplete logs successful generation completion.
func LogGenerateComplete(logger *slog.Logger, runID string, durationMs float64, varCount, targetCount int) {
	if logger == nil {
		return
	}
	logger.Info("generation completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("variables", varCount),
		slog.Int("targets", targetCount),
	)
}

// LogGenerateError logs generation failure.
func LogGenerateError(logger *slog.Logger, runID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("generation failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogVariableSet logs a variable assignment at debug level. Kind is
// the store that received the value ("global", "target", "make").
func LogVariableSet(logger *slog.Logger, name, value, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("variable set",
		slog.String("name", name),
		slog.String("value", value),
		slog.String("kind", kind),
	)
}

// LogExpandError logs a failed expression expansion.
func LogExpandError(logger *slog.Logger, template string, err error) {
	if logger == nil {
		return
	}
	logger.Error("expansion failed",
		slog.String("template", template),
		slog.String("error", err.Error()),
	)
}
