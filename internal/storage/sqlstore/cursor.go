package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"aha_collector/internal/domain"
)

type CursorStore struct {
	db *sqlx.DB
}

func NewCursorStore(db *sqlx.DB) *CursorStore {
	return &CursorStore{db: db}
}

func (s *CursorStore) Get(ctx context.Context, platform domain.Platform) (string, error) {
	var token string
	query := s.db.Rebind(`SELECT token FROM cursors WHERE platform = ?`)

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &token, query, string(platform))
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh traversal for platforms never synced
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor for %s: %w", platform, err)
	}
	return token, nil
}

func (s *CursorStore) Save(ctx context.Context, platform domain.Platform, cursor string) error {
	query := s.db.Rebind(`
		INSERT INTO cursors (platform, token, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (platform) DO UPDATE SET
			token = EXCLUDED.token,
			updated_at = EXCLUDED.updated_at`)

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, string(platform), cursor); err != nil {
		return fmt.Errorf("save cursor for %s: %w", platform, err)
	}
	return nil
}
