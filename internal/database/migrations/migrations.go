// Package migrations contains all database migrations for the application.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations() //nolint:gochecknoglobals // -
