// Package logger provides structured logging with context extraction and Sentry integration.
//
// This package extends the standard library's log/slog with automatic
// context-based attribute injection and optional Sentry error reporting.
// Worker processes log the same event from many goroutines; extracting
// job-scoped values from the context keeps every record correlated without
// threading attributes through call sites.
//
// # Basic Usage
//
// Create a logger with context extractors:
//
//	// taskpool exposes extractors for the executing job.
//	log := logger.New(taskpool.JobIDExtractor, taskpool.QueueExtractor)
//
//	// Inside a task handler the job attributes are injected automatically:
//	log.InfoContext(ctx, "invoice generated", slog.String("invoice_id", inv.ID))
//	// Output: {"level":"INFO","msg":"invoice generated","invoice_id":"...","job_id":"...","queue":"emails"}
//
// # Context Extractors
//
// A ContextExtractor extracts one log attribute from a context:
//
//	type ContextExtractor func(ctx context.Context) (slog.Attr, bool)
//
// Extractors run on every log call so request- or job-scoped values are
// always fresh. Return false to skip the attribute for that record. The
// decorator over a base handler is how a derived, context-aware logger is
// produced: the base logger is never mutated.
//
// # Sentry Integration
//
// For production error tracking, use NewWithSentry:
//
//	cfg := logger.SentryConfig{
//	    DSN:         os.Getenv("SENTRY_DSN"),
//	    Environment: "production",
//	    MinLevel:    slog.LevelWarn,
//	}
//	log := logger.NewWithSentry(cfg, taskpool.JobIDExtractor)
//
// If DSN is empty or initialization fails, the logger falls back to
// stdout-only logging, so the same code path works in development.
//
// # Handler Decoration
//
// LogHandlerDecorator wraps any slog.Handler:
//
//	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
//	log := slog.New(logger.NewLogHandlerDecorator(jsonHandler, extractors...))
package logger
