package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"certwatch/internal/domain"
)

// FileStore persists the snapshot as one JSON file.
// Params: file path and logger for fail-open warnings.
// Returns: file-backed state store.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a JSON file snapshot store.
// Params: snapshot file path and logger.
// Returns: initialized file store.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the full snapshot from disk.
// Params: context (unused for local file reads).
// Returns: decoded snapshot; missing or corrupt files yield an empty snapshot.
func (s *FileStore) Load(_ context.Context) (domain.Snapshot, error) {
	body, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting fresh", "path", s.path, "error", err.Error())
		}
		return domain.Snapshot{}, nil
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		s.logger.Warn("state file corrupted, starting fresh", "path", s.path, "error", err.Error())
		return domain.Snapshot{}, nil
	}
	if snapshot == nil {
		snapshot = domain.Snapshot{}
	}
	return snapshot, nil
}

// Save writes the full snapshot atomically via temp file and rename.
// Params: context (unused) and snapshot to persist.
// Returns: encode or filesystem error.
func (s *FileStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".certwatch_state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file %q: %w", s.path, err)
	}
	return nil
}

// Close releases file store resources.
// Params: none.
// Returns: nil.
func (s *FileStore) Close() error {
	return nil
}
