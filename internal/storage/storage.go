package storage

import (
	"context"

	"aha_collector/internal/domain"
)

// Record is anything that can live in an append-only log.
type Record interface {
	Key() string
}

// Log is an append-only record log. Records are never updated or removed;
// Append of a key already present returns domain.ErrDuplicate.
type Log[T Record] interface {
	Append(ctx context.Context, rec T) error
	ReadAll(ctx context.Context) ([]T, error)
	Contains(ctx context.Context, key string) (bool, error)
}

// CursorStore persists the traversal cursor of each platform.
type CursorStore interface {
	Get(ctx context.Context, platform domain.Platform) (string, error)
	Save(ctx context.Context, platform domain.Platform, cursor string) error
}

// Stores groups the logs a pipeline works on.
type Stores struct {
	Raw        Log[domain.RawPost]
	Classified Log[domain.ClassifiedMoment]
	Published  Log[domain.PublishedMoment]
	Cursors    CursorStore
	Tx         interface {
		WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	}
	Close func() error
}

// NopTransactions runs fn directly, for backends without transactions.
type NopTransactions struct{}

func (NopTransactions) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
