// Package pgstore implements taskpool's job store on PostgreSQL.
//
// Jobs live in a single table partitioned by queue name; finished jobs are
// copied to an archive table before the live row is deleted, giving a
// permanent record of every outcome. Claims use FOR UPDATE SKIP LOCKED so
// competing workers never block each other on a busy row and no two
// claimants ever receive the same job. The claim statement also increments
// the attempts counter, so the handler always observes the post-increment
// count for the execution about to happen.
//
// All store operations look for a transaction in the context placed there
// by WithTx; ClaimNext requires one, since a claim outside a transaction
// would release its row lock immediately. Task handlers can retrieve the
// same transaction with TxFromContext to make their own writes atomic with
// the job's resolution.
//
// The schema ships as embedded goose migrations:
//
//	if err := db.Migrate(ctx, pool, pgstore.Migrations, "schema_migrations", log); err != nil {
//	    return err
//	}
package pgstore
