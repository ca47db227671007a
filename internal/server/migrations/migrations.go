// Package migrations embeds the goose SQL migrations for every supported
// database driver.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Source tells goose where the migrations of a driver live.
type Source struct {
	// Dialect is the goose dialect name.
	Dialect string
	// Dir is the directory inside Migrations.
	Dir string
}

// For returns the migration source for a database driver.
func For(driver string) (Source, error) {
	switch driver {
	case DriverPostgres:
		return Source{Dialect: "pgx", Dir: "postgres"}, nil
	case DriverSQLite:
		return Source{Dialect: "sqlite3", Dir: "sqlite"}, nil
	default:
		return Source{}, fmt.Errorf("unsupported database driver: %q", driver)
	}
}
