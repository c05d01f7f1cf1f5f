package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the set as a JSON list of ids.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the set. A missing, empty or corrupt file yields an empty set;
// corruption is logged and the file is rewritten on the next Save.
func (f *FileStore) Load(ctx context.Context) (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if len(data) == 0 {
		return NewSet(), nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("progress file corrupt, starting fresh", "path", f.path, "error", err)
		return NewSet(), nil
	}
	return NewSet(ids...), nil
}

// Save replaces the file atomically.
func (f *FileStore) Save(ctx context.Context, s Set) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(s.Sorted())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}
