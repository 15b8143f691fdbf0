package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrate applies all pending migrations for the database's dialect and
// returns the resulting schema version. On postgres the migration runs on a
// connection borrowed from the pool and handed back afterwards.
func Migrate(ctx context.Context, db *sqlx.DB) (uint, error) {
	var (
		driver database.Driver
		err    error
	)
	switch db.DriverName() {
	case DriverPostgres:
		conn, connErr := db.Conn(ctx)
		if connErr != nil {
			return 0, fmt.Errorf("failed to acquire migration connection: %w", connErr)
		}
		pg, pgErr := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if pgErr != nil {
			conn.Close()
			return 0, fmt.Errorf("failed to create postgres migration driver: %w", pgErr)
		}
		// Closing a WithConnection driver releases conn only; the pool stays open.
		defer pg.Close()
		driver = pg
	case DriverSQLite:
		// sqlite's Close would close db itself, so its driver is never closed.
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return 0, fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create %s migration driver: %w", db.DriverName(), err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+db.DriverName())
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.DriverName(), driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
