package memory

import (
	"context"
	"fmt"
	"sync"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

// Log keeps records in insertion order in memory.
type Log[T storage.Record] struct {
	mu      sync.RWMutex
	records []T
	keys    map[string]struct{}
}

func NewLog[T storage.Record]() *Log[T] {
	return &Log[T]{keys: make(map[string]struct{})}
}

func (l *Log[T]) Append(_ context.Context, rec T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rec.Key()
	if _, ok := l.keys[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, key)
	}
	l.keys[key] = struct{}{}
	l.records = append(l.records, rec)
	return nil
}

func (l *Log[T]) ReadAll(_ context.Context) ([]T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.records...), nil
}

func (l *Log[T]) Contains(_ context.Context, key string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.keys[key]
	return ok, nil
}

type CursorStore struct {
	mu      sync.Mutex
	cursors map[domain.Platform]string
}

func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[domain.Platform]string)}
}

func (c *CursorStore) Get(_ context.Context, platform domain.Platform) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[platform], nil
}

func (c *CursorStore) Save(_ context.Context, platform domain.Platform, cursor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors[platform] = cursor
	return nil
}

// NewStores returns an in-memory store set.
func NewStores() *storage.Stores {
	return &storage.Stores{
		Raw:        NewLog[domain.RawPost](),
		Classified: NewLog[domain.ClassifiedMoment](),
		Published:  NewLog[domain.PublishedMoment](),
		Cursors:    NewCursorStore(),
		Tx:         storage.NopTransactions{},
		Close:      func() error { return nil },
	}
}
