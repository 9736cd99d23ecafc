// Package db provides PostgreSQL database utilities for worker processes.
//
// This package wraps [github.com/jackc/pgx/v5/pgxpool] to provide connection
// pooling and database migrations with defaults tuned for queue-polling
// workloads: every worker holds one transaction for the length of a
// claim/execute cycle, so the pool should be sized to at least the worker
// count. Transaction semantics live with the job store; see pgstore.
//
// # Features
//
//   - Connection pooling with configurable limits and timeouts
//   - Automatic retry logic with growing backoff during startup
//   - Database migrations using [github.com/pressly/goose/v3]
//   - Environment-based configuration for deployment convenience
//
// # Configuration
//
// All settings are loaded from environment variables:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// # Usage
//
//	cfg := db.Config{} // parse with caarlos0/env at the app boundary
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, pgstore.Migrations, cfg.MigrationsTable, slog.Default()); err != nil {
//	    log.Fatal(err)
//	}
package db
