package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/store"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedFile is returned by Load when the store file cannot be parsed.
var ErrMalformedFile = errors.New("malformed store file")

// FileStorage persists the whole store as one indented JSON document:
// a mapping from collection name to its records in insertion order.
// It implements store.Persister.
type FileStorage struct {
	Path string
}

// NewFileStorage creates a FileStorage for the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

// SaveSnapshot writes snap to the store file.
func (fs *FileStorage) SaveSnapshot(snap store.Snapshot) error {
	return writeSnapshotFile(fs.Path, snap)
}

// Load reads the store file. It returns an error wrapping os.ErrNotExist when
// the file is absent and ErrMalformedFile when it cannot be parsed.
func (fs *FileStorage) Load() (store.Snapshot, error) {
	data, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file '%s': %w", fs.Path, err)
	}

	var raw map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w '%s': %v", ErrMalformedFile, fs.Path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w '%s': document is null", ErrMalformedFile, fs.Path)
	}

	snap := make(store.Snapshot, len(raw))
	for name, records := range raw {
		converted := make([]store.Record, 0, len(records))
		for _, rec := range records {
			converted = append(converted, store.Record(rec))
		}
		snap[name] = converted
	}
	slog.Info("Store file loaded", "path", fs.Path, "collections", len(snap))
	return snap, nil
}

// writeSnapshotFile saves snap to path through a temporary file and an atomic
// rename, so the file at path is always a complete snapshot.
func writeSnapshotFile(path string, snap store.Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for '%s': %w", path, err)
	}

	tempPath := path + globalconst.TempFileSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file '%s': %w", tempPath, err)
	}
	defer file.Close()

	if _, err := file.Write(payload); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file '%s': %w", tempPath, err)
	}
	if err := file.Sync(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file '%s' to disk: %w", tempPath, err)
	}
	// Close before renaming, required on Windows.
	file.Close()

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file to '%s': %w", path, err)
	}

	slog.Debug("Snapshot written", "path", path, "bytes", len(payload))
	return nil
}
