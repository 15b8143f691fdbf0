//go:build integration

package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	stores    *storage.Stores
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := Open(s.ctx, DriverPostgres, connStr)
	s.Require().NoError(err)
	s.db = db

	stores, err := NewStores(s.ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.stores = stores
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.stores != nil {
		_ = s.stores.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestMigrate_ReleasesConnection() {
	version, err := Migrate(s.ctx, s.db)
	s.Require().NoError(err)
	s.Equal(uint(1), version)

	s.Equal(0, s.db.Stats().InUse)
	s.NoError(s.db.PingContext(s.ctx))
}

func (s *PostgresIntegrationSuite) TestPublishedLog_RoundTrip() {
	moment := domain.PublishedMoment{
		ClassifiedMoment: domain.ClassifiedMoment{
			ID:          "c-1",
			SourceID:    "hn:42",
			Layer:       domain.LayerWow,
			GrowthLever: domain.LeverActivation,
			Realization: "A model can read a whole codebase",
			Provocation: "What would onboarding look like then?",
			Accepted:    true,
		},
		Platform: domain.PlatformHackerNews,
		Title:    "Claude read my repo",
	}

	s.Require().NoError(s.stores.Published.Append(s.ctx, moment))
	err := s.stores.Published.Append(s.ctx, moment)
	s.True(errors.Is(err, domain.ErrDuplicate))

	records, err := s.stores.Published.ReadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("post:hn:42", records[0].Key())
	s.Equal(domain.LayerWow, records[0].Layer)
	s.Equal("Claude read my repo", records[0].Title)
}

func (s *PostgresIntegrationSuite) TestPageAndCursorCommitTogether() {
	post := domain.RawPost{Platform: domain.PlatformReddit, ID: "tx1", Title: "aha moment"}

	err := s.stores.Tx.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := s.stores.Raw.Append(ctx, post); err != nil {
			return err
		}
		return s.stores.Cursors.Save(ctx, domain.PlatformReddit, "0:t3_tx1")
	})
	s.Require().NoError(err)

	ok, err := s.stores.Raw.Contains(s.ctx, post.Key())
	s.Require().NoError(err)
	s.True(ok)

	cur, err := s.stores.Cursors.Get(s.ctx, domain.PlatformReddit)
	s.Require().NoError(err)
	s.Equal("0:t3_tx1", cur)
}
