// Package logger provides structured logging for the application.
//
// It configures a JSON log/slog handler from ServerConfig and carries
// request-scoped loggers and correlation IDs through context.Context.
package logger
