package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLiteDSN builds a modernc sqlite DSN with WAL and a busy timeout.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Open connects to the database and verifies it answers.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// NewStores migrates db and returns the record logs backed by it.
func NewStores(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (*storage.Stores, error) {
	version, err := Migrate(ctx, db)
	if err != nil {
		return nil, err
	}
	logger.Info("database schema ready", "driver", db.DriverName(), "version", version)

	return &storage.Stores{
		Raw:        NewLog[domain.RawPost](db, RawLog),
		Classified: NewLog[domain.ClassifiedMoment](db, ClassifiedLog),
		Published:  NewLog[domain.PublishedMoment](db, PublishedLog),
		Cursors:    NewCursorStore(db),
		Tx:         NewTransactionManager(db),
		Close:      db.Close,
	}, nil
}
