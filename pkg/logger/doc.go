// Package logger constructs the process slog.Logger: text output in dev,
// JSON in prod, with source locations and an environment attribute.
package logger
