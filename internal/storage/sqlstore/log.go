package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

const (
	RawLog        = "raw"
	ClassifiedLog = "classified"
	PublishedLog  = "published"
)

// Log stores records of one named log as JSON payloads in the shared records table.
type Log[T storage.Record] struct {
	db   *sqlx.DB
	name string
}

func NewLog[T storage.Record](db *sqlx.DB, name string) *Log[T] {
	return &Log[T]{db: db, name: name}
}

func (l *Log[T]) Append(ctx context.Context, rec T) error {
	key := rec.Key()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}

	query := l.db.Rebind(`
		INSERT INTO records (log_name, record_key, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (log_name, record_key) DO NOTHING`)

	res, err := GetExecutor(ctx, l.db).ExecContext(ctx, query, l.name, key, string(payload))
	if err != nil {
		return fmt.Errorf("append %s record %s: %w", l.name, key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, key)
	}
	return nil
}

type recordRow struct {
	Key     string `db:"record_key"`
	Payload string `db:"payload"`
}

func (l *Log[T]) ReadAll(ctx context.Context) ([]T, error) {
	query := l.db.Rebind(`
		SELECT record_key, payload
		FROM records
		WHERE log_name = ?
		ORDER BY seq`)

	var rows []recordRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, l.db), &rows, query, l.name); err != nil {
		return nil, fmt.Errorf("read %s records: %w", l.name, err)
	}

	records := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
			return nil, fmt.Errorf("decode %s record %s: %w", l.name, row.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (l *Log[T]) Contains(ctx context.Context, key string) (bool, error) {
	query := l.db.Rebind(`SELECT COUNT(*) FROM records WHERE log_name = ? AND record_key = ?`)

	var n int
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, l.db), &n, query, l.name, key); err != nil {
		return false, fmt.Errorf("lookup %s record %s: %w", l.name, key, err)
	}
	return n > 0, nil
}
