package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Shutdown returns a function that gracefully closes the database connection pool.
// Pair it with taskpool.WithOnShutdown so the pool of workers stops before
// the connections go away:
//
//	closeDB := db.Shutdown(pool)
//	workers, _ := taskpool.New(store,
//	    taskpool.WithOnShutdown(func() { _ = closeDB(context.Background()) }),
//	)
func Shutdown(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}
