// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package and attaches the service and
// environment attributes to every record.
package logger
