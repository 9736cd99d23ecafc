package logger

import "log/slog"

// NewNope returns a logger that drops every record. The worker pool falls
// back to it when no logger is configured, so library code never has to
// nil-check before logging.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
