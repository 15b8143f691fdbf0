package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

const maxLineBytes = 4 << 20

// Log is a newline-delimited JSON file with one record per line.
// Lines that fail to decode are skipped; when a key occurs more than once
// the first line wins.
type Log[T storage.Record] struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

func NewLog[T storage.Record](path string, logger *slog.Logger) *Log[T] {
	return &Log[T]{
		path:   path,
		logger: logger.With("log", path),
	}
}

func (l *Log[T]) Append(ctx context.Context, rec T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadKeys(); err != nil {
		return err
	}

	key := rec.Key()
	if _, ok := l.keys[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, key)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	// A crash mid-write can leave a line without its terminator.
	// Start on a fresh line so the torn record stays isolated.
	torn, err := endsWithoutNewline(f)
	if err != nil {
		return err
	}

	line := make([]byte, 0, len(data)+2)
	if torn {
		line = append(line, '\n')
	}
	line = append(line, data...)
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}

	l.keys[key] = struct{}{}
	return nil
}

func (l *Log[T]) ReadAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return nil, err
	}

	l.keys = make(map[string]struct{}, len(records))
	for _, r := range records {
		l.keys[r.Key()] = struct{}{}
	}
	return records, nil
}

func (l *Log[T]) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadKeys(); err != nil {
		return false, err
	}
	_, ok := l.keys[key]
	return ok, nil
}

func (l *Log[T]) loadKeys() error {
	if l.keys != nil {
		return nil
	}
	records, err := l.read()
	if err != nil {
		return err
	}
	l.keys = make(map[string]struct{}, len(records))
	for _, r := range records {
		l.keys[r.Key()] = struct{}{}
	}
	return nil
}

func (l *Log[T]) read() ([]T, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	var (
		records []T
		seen    = make(map[string]struct{})
		lineNo  int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			l.logger.Warn("skipping malformed record", "line", lineNo, "error", err)
			continue
		}

		key := rec.Key()
		if _, dup := seen[key]; dup {
			l.logger.Warn("skipping duplicate record", "line", lineNo, "key", key)
			continue
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	return records, nil
}

func endsWithoutNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read tail of %s: %w", f.Name(), err)
	}
	return last[0] != '\n', nil
}
