package pgstore

import "embed"

// Migrations holds the goose migrations for the jobs and archive tables.
// Apply with db.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
