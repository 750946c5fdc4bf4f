// Package logging provides structured logging for Greenrack Core.
//
// It is a thin wrapper around log/slog configured from config.yaml:
// JSON or text output, level filtering, and service/version default fields.
// Subsystems derive component loggers with With("component", name).
package logging
