package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/webxfer/internal/dbx"
	"github.com/dmitrijs2005/webxfer/internal/server/migrations"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/audit"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/files"
	"github.com/dmitrijs2005/webxfer/internal/server/repositories/notifications"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against a pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	Audit(db dbx.DBTX) audit.Repository
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the database of the given driver and returns the pool
// together with the matching RepositoryManager. Migrations are not run.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		sqlDriver string
		manager   RepositoryManager
	)

	switch driver {
	case migrations.DriverPostgres:
		sqlDriver, manager = "pgx", &PostgresRepositoryManager{}
	case migrations.DriverSQLite:
		sqlDriver, manager = "sqlite", &SQLiteRepositoryManager{}
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sqlOpen(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == migrations.DriverSQLite {
		// single writer; see dbx.WithTx
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, manager, nil
}
