// Package migrations holds the bun migrations creating the QCM schema.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
