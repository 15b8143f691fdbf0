package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"aha_collector/internal/domain"
)

// CursorStore keeps platform cursors in a single JSON object file.
type CursorStore struct {
	path string
	mu   sync.Mutex
}

func NewCursorStore(path string) *CursorStore {
	return &CursorStore{path: path}
}

func (c *CursorStore) Get(_ context.Context, platform domain.Platform) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursors, err := c.load()
	if err != nil {
		return "", err
	}
	return cursors[string(platform)], nil
}

// Save replaces the file through a rename so a crash never leaves a partial document.
func (c *CursorStore) Save(_ context.Context, platform domain.Platform, cursor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursors, err := c.load()
	if err != nil {
		return err
	}
	cursors[string(platform)] = cursor

	data, err := json.MarshalIndent(cursors, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".cursors-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cursor file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cursors: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cursors: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), c.path)
}

func (c *CursorStore) load() (map[string]string, error) {
	cursors := make(map[string]string)

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cursors, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return cursors, nil
	}

	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.path, err)
	}
	return cursors, nil
}
