package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/store"
)

// Options configures Open.
type Options struct {
	// Path is the store file.
	Path string
	// AdminPassword is hashed into the seeded administrator account.
	AdminPassword string
	// Store is passed through to store.New.
	Store store.Options
}

// Open loads the store from its file. When the file is absent, or cannot be
// parsed, the store is seeded with the default population and written out
// once before Open returns. A malformed file is moved aside, not overwritten.
func Open(opts Options) (*store.Store, error) {
	if opts.Path == "" {
		opts.Path = globalconst.DefaultDataFile
	}
	fs := NewFileStorage(opts.Path)

	snap, err := fs.Load()
	seeded := false
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		slog.Info("Store file not found, seeding default data", "path", opts.Path)
		seeded = true
	case errors.Is(err, ErrMalformedFile):
		slog.Warn("Store file is malformed, seeding default data", "path", opts.Path, "error", err)
		if err := moveAside(opts.Path); err != nil {
			return nil, err
		}
		seeded = true
	default:
		return nil, err
	}

	if seeded {
		if snap, err = SeedSnapshot(opts.AdminPassword); err != nil {
			return nil, err
		}
	}

	s := store.New(fs, snap, opts.Store)
	if seeded {
		if err := fs.SaveSnapshot(s.Snapshot()); err != nil {
			slog.Error("Failed to write seeded store file", "path", opts.Path, "op", "seed", "error", err)
		} else {
			slog.Info("Seeded store file written", "path", opts.Path)
		}
	}
	return s, nil
}

// moveAside renames a malformed store file so its contents survive for diagnosis.
func moveAside(path string) error {
	target := path + globalconst.CorruptFileSuffix + time.Now().Format(globalconst.BackupTimeLayout)
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to move malformed store file '%s' aside: %w", path, err)
	}
	slog.Warn("Malformed store file moved aside", "path", path, "moved_to", target)
	return nil
}
